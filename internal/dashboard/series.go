package dashboard

import (
	"encoding/json"
	"sort"

	"painel/internal/core"
)

// SeriesPoint holds the period metrics of one calendar day.
type SeriesPoint struct {
	Date   string
	Values KPIs
}

// MarshalJSON flattens the point into {"date": ..., "<metric>": ...}.
func (p SeriesPoint) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(p.Values)+1)
	for k, v := range p.Values {
		flat[k] = v
	}
	flat["date"] = p.Date
	return json.Marshal(flat)
}

// BuildSeries buckets the paid entries inside r by calendar day. The result
// is sparse (only days with at least one paid entry) and sorted by day.
// Points carry the same keys as ComputeKPIs except the balance.
func BuildSeries(s *core.Snapshot, r *core.DateRange) []SeriesPoint {
	inRange := EntriesInRange(s.Entries, r)
	if len(inRange) == 0 {
		return []SeriesPoint{}
	}

	byDay := make(map[string]KPIs)
	for _, e := range inRange {
		if !e.Paid() {
			continue
		}
		d, ok := e.Day()
		if !ok {
			continue
		}
		k, seen := byDay[d.String()]
		if !seen {
			k = KPIs{MetricEntradas: {}, MetricSaidas: {}, MetricResultado: {}}
			seedMetrics(s, k)
			byDay[d.String()] = k
		}
		accumulate(s, k, e)
	}

	// zero padded ISO days sort chronologically as strings
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)

	series := make([]SeriesPoint, 0, len(days))
	for _, d := range days {
		k := byDay[d]
		k[MetricResultado] = k[MetricEntradas].Add(k[MetricSaidas])
		series = append(series, SeriesPoint{Date: d, Values: k})
	}
	return series
}

// SeriesTotals sums every metric across the series.
func SeriesTotals(series []SeriesPoint) KPIs {
	totals := KPIs{}
	for _, p := range series {
		for k, v := range p.Values {
			totals[k] = totals[k].Add(v)
		}
	}
	return totals
}
