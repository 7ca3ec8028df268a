package snapshot

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"coinetl/internal/etl/market"
	"coinetl/pkg/coingecko"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ViewSize is the number of rows in each ranked view.
const ViewSize = 10

// ErrSourceUnavailable marks a failed or unusable market data request.
var ErrSourceUnavailable = errors.New("market source unavailable")

// MarketSource is the upstream the extractor pulls from.
type MarketSource interface {
	GetMarkets(ctx context.Context, q coingecko.MarketsQuery) ([]coingecko.MarketCoin, error)
}

// Artifact is everything one extraction produces. It is not modified after Extract returns.
type Artifact struct {
	Rows        []market.Row
	CSV         string
	CapturedAt  time.Time
	DateLabel   string
	Gainers     []market.Row
	Losers      []market.Row
	GainersHTML template.HTML
	LosersHTML  template.HTML
}

type Extractor struct {
	Source MarketSource
	Clock  clockwork.Clock
	Logger *zap.Logger
}

func NewExtractor(source MarketSource, clock clockwork.Clock, logger *zap.Logger) *Extractor {
	return &Extractor{Source: source, Clock: clock, Logger: logger}
}

// Extract fetches one page of markets and builds the run artifact.
func (e *Extractor) Extract(ctx context.Context, perPage, page int) (*Artifact, error) {
	coins, err := e.Source.GetMarkets(ctx, coingecko.MarketsQuery{
		VsCurrency: coingecko.VsCurrencyUSD,
		Order:      coingecko.OrderMarketCapDesc,
		PerPage:    perPage,
		Page:       page,
	})
	if err != nil {
		e.Logger.Error("failed to fetch markets", zap.Int("per_page", perPage), zap.Int("page", page), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	e.Logger.Info("received markets", zap.Int("count", len(coins)))

	capturedAt := e.Clock.Now().Truncate(time.Second)

	rows := make([]market.Row, 0, len(coins))
	for i, c := range coins {
		if c.ID == "" {
			e.Logger.Warn("skipping market record without id", zap.Int("index", i), zap.String("symbol", c.Symbol))
			continue
		}
		rows = append(rows, market.FromCoin(c, capturedAt))
	}

	csvText, err := EncodeCSV(rows)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	gainers := Gainers(rows, ViewSize)
	losers := Losers(rows, ViewSize)

	gainersHTML, err := RenderTable(gainers)
	if err != nil {
		return nil, fmt.Errorf("render gainers: %w", err)
	}
	losersHTML, err := RenderTable(losers)
	if err != nil {
		return nil, fmt.Errorf("render losers: %w", err)
	}

	e.Logger.Info("snapshot built",
		zap.Int("rows", len(rows)),
		zap.Int("csv_bytes", len(csvText)),
		zap.String("time_stamp", capturedAt.Format(market.TimestampLayout)),
	)

	return &Artifact{
		Rows:        rows,
		CSV:         csvText,
		CapturedAt:  capturedAt,
		DateLabel:   capturedAt.Format(market.DateLayout),
		Gainers:     gainers,
		Losers:      losers,
		GainersHTML: gainersHTML,
		LosersHTML:  losersHTML,
	}, nil
}
