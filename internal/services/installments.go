package services

import (
	"fmt"

	"painel/internal/core"
)

// ExpandInstallments turns one submitted entry into n monthly siblings.
// Sibling i is dated i months after the original, carries "(i/n)" in its
// description when n > 1 and is pending unless it is the first one of a
// paid submission. newID is called once per sibling.
func ExpandInstallments(e core.Entry, n int, newID func() string) ([]core.Entry, error) {
	if n == 0 {
		n = 1
	}
	if n < 1 || n > core.MaxInstallments {
		return nil, core.ErrInvalidInstalment
	}
	day, ok := e.Day()
	if !ok {
		return nil, core.ErrInvalidDate
	}

	out := make([]core.Entry, n)
	for i := range out {
		sibling := e
		d := day.AddMonths(i)
		sibling.ID = newID()
		sibling.Date = d.String()
		sibling.YearMonth = d.YearMonth()
		if n > 1 {
			sibling.Description = fmt.Sprintf("%s (%d/%d)", e.Description, i+1, n)
		}
		sibling.Status = core.StatusPending
		if i == 0 && e.Status == core.StatusPaid {
			sibling.Status = core.StatusPaid
		}
		out[i] = sibling
	}
	return out, nil
}
