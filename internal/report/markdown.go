package report

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/shopspring/decimal"
	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/usecase/aggregation"
	"github.com/simaogato/networth-backend/internal/usecase/composition"
	"github.com/simaogato/networth-backend/internal/usecase/dashboard"
)

const summaryTemplate = `# Net worth

Total: **{{ money .Total }}** across {{ .AccountCount }} account(s)
{{ if .Previous }}
Change since {{ .Previous.Date.Format "2006-01-02" }}: **{{ signed .Change.Delta }}** ({{ percent .Change.Percent }})
{{ else }}
No previous snapshot to compare with.
{{ end }}
| Account | Type | Balance | Change |
|:---|:---|---:|---:|
{{- range .Accounts }}
| {{ .Name }} | {{ .Type }} | {{ money .Balance }} | {{ change .Change }} |
{{- end }}
`

const compositionTemplate = `# Composition

| Name | Value | Share |
|:---|---:|---:|
{{- range .Items }}
| {{ .Name }} | {{ money .Value }} | {{ share .Share }} |
{{- end }}
| **Total** | **{{ money .Total }}** | |
`

const accountsTemplate = `# Accounts

| ID | Name | Type | IBAN | Balance |
|:---|:---|:---|:---|---:|
{{- range . }}
| {{ .ID }} | {{ .Name }} | {{ .Type }} | {{ .IBAN }} | {{ money .Balance }} |
{{- end }}
`

const revisionsTemplate = `# Saved revisions

| Saved at | Total | Accounts | Snapshots |
|:---|---:|---:|---:|
{{- range . }}
| {{ .SavedAt.UTC.Format "2006-01-02 15:04:05" }} | {{ money .Total }} | {{ .AccountCount }} | {{ .HistoryCount }} |
{{- end }}
`

func funcs(currency string) template.FuncMap {
	return template.FuncMap{
		"money":   func(d decimal.Decimal) string { return Money(d, currency) },
		"signed":  func(d decimal.Decimal) string { return SignedMoney(d, currency) },
		"percent": Percent,
		"share":   func(d decimal.Decimal) string { return d.StringFixed(2) + "%" },
		"change": func(c dashboard.AccountChangeView) string {
			if !c.Available {
				return "n/a"
			}
			if !c.Material {
				return "="
			}
			return Percent(c.Percent)
		},
	}
}

func render(name, text, currency string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(funcs(currency)).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return b.String(), nil
}

// Summary renders the headline figures and the per-account table
func Summary(s *dashboard.Summary, currency string) (string, error) {
	return render("summary", summaryTemplate, currency, s)
}

// Composition renders a breakdown with the share of each item
func Composition(b *composition.Breakdown, currency string) (string, error) {
	return render("composition", compositionTemplate, currency, b)
}

// Accounts renders the account list
func Accounts(accounts []domain.Account, currency string) (string, error) {
	return render("accounts", accountsTemplate, currency, accounts)
}

// Revisions renders the save log of a store
func Revisions(revisions []domain.Revision, currency string) (string, error) {
	return render("revisions", revisionsTemplate, currency, revisions)
}

// Series renders the chart dataset as a table, one column per series key
func Series(s *dashboard.Series, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Evolution (%s)\n\n", s.Timeframe)
	if len(s.Rows) == 0 {
		b.WriteString("No snapshots in this timeframe.\n")
		return b.String()
	}

	header := []string{"Date"}
	align := []string{":---"}
	for _, k := range s.Keys {
		header = append(header, k.Name)
		align = append(align, "---:")
	}
	header = append(header, "Total")
	align = append(align, "---:")
	writeRow(&b, header)
	writeRow(&b, align)

	for _, row := range s.Rows {
		cells := []string{row.Date.Format("2006-01-02")}
		for _, k := range s.Keys {
			cells = append(cells, Money(row.Values[k.ID], currency))
		}
		cells = append(cells, Money(row.Total, currency))
		writeRow(&b, cells)
	}

	first, last := s.Rows[0], s.Rows[len(s.Rows)-1]
	change := aggregation.ChangeVsPrevious(last.Total, &domain.HistoryEntry{Total: first.Total})
	fmt.Fprintf(&b, "\nOver the period: **%s** (%s)\n", SignedMoney(change.Delta, currency), Percent(change.Percent))
	return b.String()
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("| ")
	b.WriteString(strings.Join(cells, " | "))
	b.WriteString(" |\n")
}
