package dashboard

import "painel/internal/core"

// Base metric names.
const (
	MetricEntradas   = "Entradas"
	MetricSaidas     = "Saidas"
	MetricResultado  = "Resultado"
	MetricSaldoTotal = "Saldo Total Atual"
)

// KPIs maps a metric name to its signed total. Missing keys read as zero.
type KPIs map[string]core.Money

// Get returns the total for name, zero when absent.
func (k KPIs) Get(name string) core.Money {
	return k[name]
}

// ComputeKPIs aggregates the paid entries inside r. The balance metric is
// the exception: it covers every paid entry regardless of r.
func ComputeKPIs(s *core.Snapshot, r *core.DateRange) KPIs {
	kpis := KPIs{
		MetricEntradas:   {},
		MetricSaidas:     {},
		MetricResultado:  {},
		MetricSaldoTotal: CurrentBalance(s),
	}
	seedMetrics(s, kpis)
	for _, e := range EntriesInRange(s.Entries, r) {
		accumulate(s, kpis, e)
	}
	kpis[MetricResultado] = kpis[MetricEntradas].Add(kpis[MetricSaidas])
	return kpis
}

// CurrentBalance is the sum of every initial balance plus the signed sum of
// every paid entry. Entries with an unknown category are skipped.
func CurrentBalance(s *core.Snapshot) core.Money {
	var total core.Money
	for _, a := range s.Accounts {
		total = total.Add(a.InitialBalance)
	}
	for _, e := range s.Entries {
		if v, ok := settledValue(s, e); ok {
			total = total.Add(v)
		}
	}
	return total
}

// AccountBalances returns each account, in store order, with its initial
// balance plus the signed sum of its paid entries.
func AccountBalances(s *core.Snapshot) []core.AccountBalance {
	idx := make(map[string]int, len(s.Accounts))
	out := make([]core.AccountBalance, len(s.Accounts))
	for i, a := range s.Accounts {
		out[i] = core.AccountBalance{Account: a, Balance: a.InitialBalance}
		if _, dup := idx[a.ID]; !dup {
			idx[a.ID] = i
		}
	}
	for _, e := range s.Entries {
		i, ok := idx[e.AccountID]
		if !ok {
			continue
		}
		if v, ok := settledValue(s, e); ok {
			out[i].Balance = out[i].Balance.Add(v)
		}
	}
	return out
}

// settledValue is the signed value of a paid entry whose category exists.
func settledValue(s *core.Snapshot, e core.Entry) (core.Money, bool) {
	if !e.Paid() {
		return core.Money{}, false
	}
	c, ok := s.Category(e.CategoryID)
	if !ok {
		return core.Money{}, false
	}
	return e.Value.Times(c.Group.Sign()), true
}

// seedMetrics sets every category and subcategory key to zero so they are
// present even without entries. Subcategories of a missing category are left out.
func seedMetrics(s *core.Snapshot, k KPIs) {
	for _, c := range s.Categories {
		k[c.Name] = core.Money{}
	}
	for _, sc := range s.Subcategories {
		if name := s.CategoryName(sc.CategoryID); name != "" {
			k[core.SubcategoryMetricName(name, sc.Name)] = core.Money{}
		}
	}
}

// accumulate adds one entry to the period metrics. Pending entries and
// entries with an unknown category contribute nothing; an unknown
// subcategory only drops the subcategory key.
func accumulate(s *core.Snapshot, k KPIs, e core.Entry) {
	if !e.Paid() {
		return
	}
	c, ok := s.Category(e.CategoryID)
	if !ok {
		return
	}
	switch c.Group {
	case core.GroupEntrada:
		k[MetricEntradas] = k[MetricEntradas].Add(e.Value)
	case core.GroupSaida:
		k[MetricSaidas] = k[MetricSaidas].Add(e.Value.Times(-1))
	}
	signed := e.Value.Times(c.Group.Sign())
	k[c.Name] = k[c.Name].Add(signed)
	if sc, ok := s.Subcategory(e.SubcategoryID); ok {
		key := core.SubcategoryMetricName(c.Name, sc.Name)
		k[key] = k[key].Add(signed)
	}
}
