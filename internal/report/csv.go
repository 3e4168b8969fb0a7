package report

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes the header lines, a blank line, the summary and the
// entry table.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	records := r.Header()
	records = append(records, []string{})
	for _, s := range r.Summary {
		records = append(records, []string{s.Name, s.Amount.BRL()})
	}
	records = append(records, []string{})
	records = append(records, r.Table()...)

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
