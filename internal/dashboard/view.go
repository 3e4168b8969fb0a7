package dashboard

import (
	"strconv"
	"strings"

	"painel/internal/cache"
	"painel/internal/core"
)

// View is everything the dashboard screen renders for one request.
type View struct {
	KPIs     KPIs                  `json:"kpis"`
	Tiles    []Tile                `json:"tiles"`
	Series   []SeriesPoint         `json:"series"`
	Entries  []core.Entry          `json:"entries"`
	Metrics  []MetricOption        `json:"metrics"`
	Colors   map[string]string     `json:"colors"`
	Balances []core.AccountBalance `json:"balances"`
	Sort     SortSpec              `json:"sort"`
	Config   core.Config           `json:"config"`
}

// ViewRequest identifies a view. Version must change whenever the snapshot
// does; it is what makes cached views safe to reuse.
type ViewRequest struct {
	UserID    string
	Version   uint64
	Snapshot  *core.Snapshot
	Config    core.Config
	Filter    TableFilter
	Sort      SortSpec
	Selection MetricSelection
}

// Key is the cache key of the request. It starts with the user id so a
// user's views can be dropped together.
func (r ViewRequest) Key() string {
	var b strings.Builder
	b.WriteString(UserPrefix(r.UserID))
	b.WriteString(strconv.FormatUint(r.Version, 10))
	for _, part := range []string{
		r.Config.DateRange.String(),
		strconv.FormatBool(r.Config.Privacy),
		r.Config.Name,
		string(r.Config.Theme),
		strings.ToLower(strings.TrimSpace(r.Filter.Search)),
		r.Filter.CategoryID,
		r.Filter.SubcategoryID,
		string(r.Sort.Col),
		string(r.Sort.Dir),
		strings.Join(r.Selection, "\x1f"),
	} {
		b.WriteByte('|')
		b.WriteString(part)
	}
	return b.String()
}

// UserPrefix is the key prefix shared by all views of a user.
func UserPrefix(userID string) string {
	return userID + "|"
}

// Dashboard computes views and memoises them.
type Dashboard struct {
	views cache.Cache[*View]
}

// NewDashboard creates a dashboard backed by views. A nil cache disables
// memoisation.
func NewDashboard(views cache.Cache[*View]) *Dashboard {
	return &Dashboard{views: views}
}

// View returns the cached view for req or builds it. Returned views are
// shared and must be treated as read-only.
func (d *Dashboard) View(req ViewRequest) *View {
	if d.views == nil {
		return BuildView(req)
	}
	key := req.Key()
	if v, ok := d.views.Get(key); ok {
		return v
	}
	v := BuildView(req)
	d.views.Set(key, v)
	return v
}

// Invalidate drops every cached view of a user.
func (d *Dashboard) Invalidate(userID string) int {
	if d.views == nil {
		return 0
	}
	return d.views.DeletePrefix(UserPrefix(userID))
}

// BuildView computes a view without caching.
func BuildView(req ViewRequest) *View {
	s := req.Snapshot
	if s == nil {
		s = core.EmptySnapshot()
	}
	sel := req.Selection
	if len(sel) == 0 {
		sel = DefaultSelection()
	}
	r := req.Config.DateRange

	kpis := ComputeKPIs(s, r)
	colors := MetricColors(s, sel)
	entries := EntriesInRange(s.Entries, r)
	entries = FilterEntries(s, entries, req.Filter)
	entries = SortEntries(entries, s, req.Sort)

	return &View{
		KPIs:     kpis,
		Tiles:    Tiles(kpis, sel, colors),
		Series:   BuildSeries(s, r),
		Entries:  entries,
		Metrics:  MetricOptions(s),
		Colors:   colors,
		Balances: AccountBalances(s),
		Sort:     req.Sort,
		Config:   req.Config,
	}
}
