package notifier

import (
	"fmt"
	"html/template"
	"strings"
)

// ReportData is the content of the daily report email.
type ReportData struct {
	DateLabel   string
	Table       string
	Database    string
	RowCount    int
	GainersHTML template.HTML
	LosersHTML  template.HTML
}

// Subject returns the subject line for the report of dateLabel.
func Subject(dateLabel string) string {
	return fmt.Sprintf("Crypto market report: top 10 movers for %s", dateLabel)
}

var reportTmpl = template.Must(template.New("report").Parse(`<html>
<head>
<style>
  body { font-family: Arial, sans-serif; color: #222; line-height: 1.6; margin: 0; padding: 20px; background-color: #f8f9fa; }
  h2 { color: #1a73e8; margin-bottom: 8px; }
  p { font-size: 15px; color: #333; }
  table { border-collapse: collapse; width: 100%; margin-top: 10px; margin-bottom: 30px; font-size: 14px; }
  th, td { border: 1px solid #ddd; text-align: center; padding: 8px; }
  th { background-color: #eaf1fb; color: #222; }
  tr:nth-child(even) { background-color: #f2f2f2; }
  .footer { font-size: 13px; color: #666; margin-top: 30px; }
</style>
</head>
<body>
  <h2>Good morning!</h2>
  <p>Your CoinGecko crypto report is here.</p>
  <p>
    The market snapshot for <strong>{{.DateLabel}}</strong> ({{.RowCount}} coins) has been pulled from the
    CoinGecko API and stored in the <strong>{{.Table}}</strong> table of <strong>{{.Database}}</strong>.
    The full snapshot is attached as CSV; below is a summary of the last 24 hours.
  </p>

  <h2>Top 10 cryptos by price increase (24h)</h2>
  {{.GainersHTML}}

  <h2>Top 10 cryptos by price decrease (24h)</h2>
  {{.LosersHTML}}

  <div class="footer">
    <p>This is an automated email, please do not reply.</p>
  </div>
</body>
</html>
`))

// RenderReport builds the HTML body. The ranked-view fragments are embedded as-is.
func RenderReport(d ReportData) (string, error) {
	var buf strings.Builder
	if err := reportTmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}
