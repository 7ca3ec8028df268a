package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3"

	VsCurrencyUSD      = "usd"
	OrderMarketCapDesc = "market_cap_desc"

	apiKeyHeader = "x-cg-demo-api-key"
)

type RESTClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithAPIKey sets the demo API key sent with every request.
func (c *RESTClient) WithAPIKey(key string) *RESTClient {
	c.apiKey = key
	return c
}

func (c *RESTClient) HTTPClient() *http.Client {
	return c.httpClient
}

// GetMarkets fetches one page of coins with market data.
func (c *RESTClient) GetMarkets(ctx context.Context, q MarketsQuery) ([]MarketCoin, error) {
	params := url.Values{}
	params.Set("vs_currency", q.VsCurrency)
	params.Set("order", q.Order)
	params.Set("per_page", strconv.Itoa(q.PerPage))
	params.Set("page", strconv.Itoa(q.Page))
	endpoint := c.baseURL + "/coins/markets?" + params.Encode()

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var coins []MarketCoin
	if err := json.NewDecoder(resp.Body).Decode(&coins); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return coins, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr ErrorResponse
	if json.Unmarshal(body, &apiErr) == nil {
		if msg := apiErr.Status.ErrorMessage; msg != "" {
			return fmt.Errorf("coingecko error: status %d: %s", resp.StatusCode, msg)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("coingecko error: status %d: %s", resp.StatusCode, apiErr.Error)
		}
	}
	return fmt.Errorf("coingecko error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
