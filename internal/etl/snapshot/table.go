package snapshot

import (
	"html/template"
	"strings"

	"coinetl/internal/etl/market"

	"github.com/shopspring/decimal"
)

var tableTmpl = template.Must(template.New("table").Funcs(template.FuncMap{
	"num": formatCell,
	"ts": func(r market.Row) string {
		return r.TimeStamp.Format(market.TimestampLayout)
	},
}).Parse(`<table class="dataframe">
  <thead>
    <tr style="text-align: center;">
{{- range .Columns}}
      <th>{{.}}</th>
{{- end}}
    </tr>
  </thead>
  <tbody>
{{- range .Rows}}
    <tr>
      <td>{{.ID}}</td>
      <td>{{.Symbol}}</td>
      <td>{{.Name}}</td>
{{- range .Values}}
      <td>{{num .}}</td>
{{- end}}
      <td>{{ts .}}</td>
    </tr>
{{- end}}
  </tbody>
</table>`))

// RenderTable renders rows as a standalone HTML table. Text cells are escaped.
func RenderTable(rows []market.Row) (template.HTML, error) {
	var buf strings.Builder
	err := tableTmpl.Execute(&buf, struct {
		Columns []string
		Rows    []market.Row
	}{market.Columns, rows})
	if err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func formatCell(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return decimal.NewFromFloat(*v).String()
}
