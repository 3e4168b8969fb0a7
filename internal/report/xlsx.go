package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary = "Resumo"
	sheetSeries  = "Série diária"
	sheetEntries = "Lançamentos"

	colorHeader  = "#2980B9"
	colorIncome  = "#10B981"
	colorExpense = "#EF4444"
	brlNumFmt    = `"R$" #,##0.00;-"R$" #,##0.00`
)

type xlsxStyles struct {
	title, header, money, income, expense int
}

func newXLSXStyles(f *excelize.File) (xlsxStyles, error) {
	var st xlsxStyles
	var err error
	if st.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}}); err != nil {
		return st, err
	}
	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{colorHeader}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return st, err
	}
	if st.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(brlNumFmt)}); err != nil {
		return st, err
	}
	st.income, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Color: colorIncome},
		CustomNumFmt: strPtr(brlNumFmt),
	})
	if err != nil {
		return st, err
	}
	st.expense, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Color: colorExpense},
		CustomNumFmt: strPtr(brlNumFmt),
	})
	return st, err
}

func strPtr(s string) *string { return &s }

// WriteXLSX writes a workbook with summary, daily series and entry sheets.
// Negative values are red and positive ones green.
func WriteXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	st, err := newXLSXStyles(f)
	if err != nil {
		return fmt.Errorf("create styles: %w", err)
	}
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetSeries, sheetEntries} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	if err := writeSummarySheet(f, r, st); err != nil {
		return err
	}
	if err := writeSeriesSheet(f, r, st); err != nil {
		return err
	}
	if err := writeEntriesSheet(f, r, st); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func valueStyle(st xlsxStyles, cents int64) int {
	switch {
	case cents < 0:
		return st.expense
	case cents > 0:
		return st.income
	}
	return st.money
}

func writeSummarySheet(f *excelize.File, r *Report, st xlsxStyles) error {
	for i, line := range r.Header() {
		if err := f.SetCellValue(sheetSummary, cell(1, i+1), line[0]); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheetSummary, "A1", "A1", st.title); err != nil {
		return err
	}
	row := len(r.Header()) + 2
	for _, s := range r.Summary {
		if err := f.SetCellValue(sheetSummary, cell(1, row), s.Name); err != nil {
			return err
		}
		if err := f.SetCellValue(sheetSummary, cell(2, row), s.Amount.Float()); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetSummary, cell(2, row), cell(2, row), valueStyle(st, s.Amount.Cents)); err != nil {
			return err
		}
		row++
	}
	return f.SetColWidth(sheetSummary, "A", "B", 22)
}

func writeSeriesSheet(f *excelize.File, r *Report, st xlsxStyles) error {
	header := append([]string{"Data"}, r.SeriesMetrics...)
	if err := f.SetSheetRow(sheetSeries, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetSeries, "A1", cell(len(header), 1), st.header); err != nil {
		return err
	}
	for i, p := range r.Series {
		row := i + 2
		date := p.Date
		if err := f.SetCellValue(sheetSeries, cell(1, row), date); err != nil {
			return err
		}
		for j, metric := range r.SeriesMetrics {
			v := p.Values.Get(metric)
			if err := f.SetCellValue(sheetSeries, cell(j+2, row), v.Float()); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheetSeries, cell(j+2, row), cell(j+2, row), valueStyle(st, v.Cents)); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeEntriesSheet(f *excelize.File, r *Report, st xlsxStyles) error {
	header := Columns
	if err := f.SetSheetRow(sheetEntries, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetEntries, "A1", cell(len(header), 1), st.header); err != nil {
		return err
	}
	for i, row := range r.Rows {
		n := i + 2
		values := []any{row.Date, row.Account, row.Category, row.Subcategory, row.Description, row.Value.Float()}
		if err := f.SetSheetRow(sheetEntries, cell(1, n), &values); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetEntries, cell(6, n), cell(6, n), valueStyle(st, row.Value.Cents)); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheetEntries, "A", "D", 16); err != nil {
		return err
	}
	return f.SetColWidth(sheetEntries, "E", "E", 40)
}
