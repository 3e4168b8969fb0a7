package dashboard

import (
	"testing"
	"time"

	"painel/internal/cache"
	"painel/internal/core"
)

func request(version uint64) ViewRequest {
	return ViewRequest{
		UserID:   "u1",
		Version:  version,
		Snapshot: fixture(),
		Config:   core.Config{DateRange: january(), Theme: core.ThemeDefault},
		Sort:     SortSpec{Col: ColValue, Dir: SortAsc},
	}
}

func TestBuildView(t *testing.T) {
	v := BuildView(request(1))
	if v.KPIs.Get(MetricResultado).Cents != 70000 {
		t.Fatalf("Resultado = %v", v.KPIs.Get(MetricResultado))
	}
	if len(v.Tiles) != TileCount || v.Tiles[0].Metric != MetricResultado {
		t.Fatalf("tiles = %+v", v.Tiles)
	}
	if ids(v.Entries) != "e2e3e1" {
		t.Fatalf("entries = %s", ids(v.Entries))
	}
	if len(v.Series) != 2 || len(v.Balances) != 2 {
		t.Fatalf("series %d, balances %d", len(v.Series), len(v.Balances))
	}
}

func TestDashboardCachesViews(t *testing.T) {
	views := cache.NewLRUCache[*View](10, time.Minute)
	d := NewDashboard(views)

	first := d.View(request(1))
	if d.View(request(1)) != first {
		t.Fatal("same request should hit the cache")
	}
	if d.View(request(2)) == first {
		t.Fatal("a new snapshot version must not reuse the view")
	}

	other := request(1)
	other.Filter.Search = "aluguel"
	if d.View(other) == first {
		t.Fatal("a different filter must not reuse the view")
	}

	if n := d.Invalidate("u1"); n != 3 {
		t.Fatalf("invalidated %d views, want 3", n)
	}
	if views.Size() != 0 {
		t.Fatal("cache should be empty")
	}
	if st := views.Stats(); st.Hits != 1 || st.Misses != 3 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestViewKeyIsUserScoped(t *testing.T) {
	a, b := request(1), request(1)
	b.UserID = "u2"
	if a.Key() == b.Key() {
		t.Fatal("keys of different users collide")
	}
}
