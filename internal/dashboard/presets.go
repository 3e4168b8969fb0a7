package dashboard

import (
	"fmt"

	"painel/internal/core"
)

const (
	PresetToday     Preset = "today"
	PresetYesterday Preset = "yesterday"
	PresetLast7     Preset = "last7"
	PresetThisMonth Preset = "thisMonth"
	PresetLastMonth Preset = "lastMonth"
	PresetAll       Preset = "all"
)

// Preset names a shortcut for the date filter.
type Preset string

func Presets() []Preset {
	return []Preset{PresetToday, PresetYesterday, PresetLast7, PresetThisMonth, PresetLastMonth, PresetAll}
}

// PresetRange resolves a preset relative to today. PresetAll yields a nil
// range, meaning no filter.
func PresetRange(p Preset, today core.Day) (*core.DateRange, error) {
	switch p {
	case PresetToday:
		return &core.DateRange{From: today, To: today}, nil
	case PresetYesterday:
		y := today.AddDays(-1)
		return &core.DateRange{From: y, To: y}, nil
	case PresetLast7:
		return &core.DateRange{From: today.AddDays(-6), To: today}, nil
	case PresetThisMonth:
		return monthRange(today), nil
	case PresetLastMonth:
		return monthRange(firstOfMonth(today).AddDays(-1)), nil
	case PresetAll:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown date preset %q", p)
}

func firstOfMonth(d core.Day) core.Day {
	return core.NewDay(d.Year(), int(d.Month()), 1)
}

func monthRange(d core.Day) *core.DateRange {
	first := firstOfMonth(d)
	return &core.DateRange{From: first, To: first.AddMonths(1).AddDays(-1)}
}
