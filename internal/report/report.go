// Package report renders the dashboard state as a financial report in CSV,
// XLSX or a Google Sheets tab.
package report

import (
	"fmt"
	"time"

	"painel/internal/core"
	"painel/internal/dashboard"
)

const (
	Title        = "Relatório Financeiro"
	DefaultOwner = "Gateway Financeiro"
	AllTime      = "Todo o período"
)

// Columns of the entry table.
var Columns = []string{"Data", "Conta", "Categoria", "Subcategoria", "Descrição", "Valor"}

type (
	Report struct {
		Title       string
		Owner       string
		Period      string
		GeneratedAt time.Time
		Summary     []core.NamedAmount
		// SeriesMetrics are the metric columns of Series, base metrics first.
		SeriesMetrics []string
		Series        []dashboard.SeriesPoint
		Rows          []Row
	}

	// Row is one entry with names resolved and the signed value.
	Row struct {
		Date        string
		Account     string
		Category    string
		Subcategory string
		Description string
		Value       core.Money
	}
)

// Build assembles a report from already filtered and sorted entries.
func Build(s *core.Snapshot, cfg core.Config, entries []core.Entry, kpis dashboard.KPIs, series []dashboard.SeriesPoint, now time.Time) *Report {
	owner := cfg.Name
	if owner == "" {
		owner = DefaultOwner
	}
	r := &Report{
		Title:       Title,
		Owner:       owner,
		Period:      PeriodText(cfg.DateRange),
		GeneratedAt: now,
		Summary: []core.NamedAmount{
			{Name: "Resultado", Amount: kpis.Get(dashboard.MetricResultado)},
			{Name: "Entradas", Amount: kpis.Get(dashboard.MetricEntradas)},
			{Name: "Saídas", Amount: kpis.Get(dashboard.MetricSaidas)},
			{Name: "Saldo Total", Amount: kpis.Get(dashboard.MetricSaldoTotal)},
		},
		SeriesMetrics: []string{dashboard.MetricEntradas, dashboard.MetricSaidas, dashboard.MetricResultado},
		Series:        series,
		Rows:          make([]Row, 0, len(entries)),
	}
	for _, e := range entries {
		date := e.Date
		if d, ok := e.Day(); ok {
			date = d.FormatBR()
		}
		r.Rows = append(r.Rows, Row{
			Date:        date,
			Account:     s.AccountName(e.AccountID),
			Category:    s.CategoryName(e.CategoryID),
			Subcategory: s.SubcategoryName(e.SubcategoryID),
			Description: e.Description,
			Value:       s.SignedValue(e),
		})
	}
	return r
}

// FromView builds the report of a dashboard view.
func FromView(s *core.Snapshot, v *dashboard.View, now time.Time) *Report {
	return Build(s, v.Config, v.Entries, v.KPIs, v.Series, now)
}

// PeriodText renders a range as "dd/mm/yyyy - dd/mm/yyyy".
func PeriodText(r *core.DateRange) string {
	from, to, ok := r.Bounds()
	if !ok {
		return AllTime
	}
	return from.FormatBR() + " - " + to.FormatBR()
}

// Filename is relatorio-financeiro-YYYY-MM-DD.<ext>.
func Filename(ext string, now time.Time) string {
	return fmt.Sprintf("relatorio-financeiro-%s.%s", now.Format("2006-01-02"), ext)
}

// Header returns the metadata lines shown above the tables.
func (r *Report) Header() [][]string {
	return [][]string{
		{r.Title},
		{r.Owner},
		{"Período: " + r.Period},
		{"Gerado em: " + r.GeneratedAt.Format("02/01/2006")},
	}
}

// Table returns the column header followed by one line per row, values
// formatted as BRL.
func (r *Report) Table() [][]string {
	out := make([][]string, 0, len(r.Rows)+1)
	out = append(out, Columns)
	for _, row := range r.Rows {
		out = append(out, []string{row.Date, row.Account, row.Category, row.Subcategory, row.Description, row.Value.BRL()})
	}
	return out
}
