package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"painel/internal/core"
)

func newTestRepo(t *testing.T, loc *time.Location) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "painel.db"), loc)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "painel.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path, time.UTC)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		repo.Close()
	}
}

func TestCollectionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, time.UTC)

	if err := repo.UpsertAccount(ctx, "u", core.Account{ID: "a1", Name: "Nubank", InitialBalance: core.Cents(-1500)}); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpsertCategory(ctx, "u", core.Category{ID: "c1", Name: "Moradia", Group: core.GroupSaida}); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpsertSubcategory(ctx, "u", core.Subcategory{ID: "s1", Name: "Aluguel", CategoryID: "c1"}); err != nil {
		t.Fatal(err)
	}
	e := core.Entry{ID: "e1", Date: "2024-01-10", YearMonth: "2024-01", CategoryID: "c1", SubcategoryID: "s1",
		AccountID: "a1", Description: "Aluguel", Value: core.Cents(120000), Status: core.StatusPaid}
	if err := repo.UpsertEntry(ctx, "u", e); err != nil {
		t.Fatal(err)
	}

	accounts, _ := repo.ListAccounts(ctx, "u")
	cats, _ := repo.ListCategories(ctx, "u")
	subs, _ := repo.ListSubcategories(ctx, "u")
	entries, err := repo.ListEntries(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 1 || accounts[0].InitialBalance.Cents != -1500 {
		t.Fatalf("accounts = %+v", accounts)
	}
	if len(cats) != 1 || cats[0].Group != core.GroupSaida {
		t.Fatalf("categories = %+v", cats)
	}
	if len(subs) != 1 || subs[0].CategoryID != "c1" {
		t.Fatalf("subcategories = %+v", subs)
	}
	if len(entries) != 1 || entries[0] != e {
		t.Fatalf("entries = %+v", entries)
	}

	other, _ := repo.ListEntries(ctx, "someone-else")
	if len(other) != 0 {
		t.Fatal("entries leaked across users")
	}
}

func TestUpdateAndDeleteMissing(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, time.UTC)

	if err := repo.UpdateEntry(ctx, "u", core.Entry{ID: "nope"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update: %v", err)
	}
	if err := repo.DeleteCategory(ctx, "u", "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete: %v", err)
	}
}

func TestEntryBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, time.UTC)

	var published int
	unsub := repo.Subscribe("u", core.CollectionEntries, func(core.Update) { published++ })
	defer unsub()

	batch := []core.Entry{
		{ID: "e1", Date: "2024-01-01", YearMonth: "2024-01", Value: core.Cents(1), Status: core.StatusPaid},
		{ID: "e2", Date: "2024-02-01", YearMonth: "2024-02", Value: core.Cents(1), Status: core.StatusPending},
	}
	if err := repo.UpsertEntries(ctx, "u", batch); err != nil {
		t.Fatal(err)
	}
	if published != 1 {
		t.Fatalf("batch published %d updates, want 1", published)
	}

	if err := repo.DeleteEntries(ctx, "u", []string{"e1", "missing"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	entries, _ := repo.ListEntries(ctx, "u")
	if len(entries) != 2 {
		t.Fatalf("failed batch delete was partially applied: %d entries left", len(entries))
	}
}

func TestConfigMerge(t *testing.T) {
	ctx := context.Background()
	brt := time.FixedZone("BRT", -3*3600)
	repo := newTestRepo(t, brt)

	p, err := repo.ReadConfig(ctx, "u")
	if err != nil || p.DateRange != nil || p.Name != nil {
		t.Fatalf("fresh config: %+v %v", p, err)
	}

	privacy := true
	theme := core.ThemeOcean
	r := &core.DateRange{From: core.NewDay(2024, 3, 1), To: core.NewDay(2024, 3, 31)}
	if err := repo.MergeConfig(ctx, "u", core.ConfigPatch{DateRange: r, Privacy: &privacy, Theme: &theme}); err != nil {
		t.Fatal(err)
	}
	p, _ = repo.ReadConfig(ctx, "u")
	if p.DateRange == nil || p.DateRange.String() != "2024-03-01..2024-03-31" {
		t.Fatalf("range = %v", p.DateRange)
	}
	if p.Privacy == nil || !*p.Privacy || p.Theme == nil || *p.Theme != core.ThemeOcean {
		t.Fatalf("unexpected patch %+v", p)
	}

	if err := repo.MergeConfig(ctx, "u", core.ConfigPatch{DateRange: &core.DateRange{}}); err != nil {
		t.Fatal(err)
	}
	p, _ = repo.ReadConfig(ctx, "u")
	if p.DateRange != nil || p.Privacy == nil {
		t.Fatalf("clearing the range should keep other fields: %+v", p)
	}
}

func TestConcurrentWritesPublishInSequence(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, time.UTC)

	var (
		mu     sync.Mutex
		newest core.Update
	)
	unsub := repo.Subscribe("u", core.CollectionEntries, func(u core.Update) {
		mu.Lock()
		defer mu.Unlock()
		if u.Seq > newest.Seq {
			newest = u
		}
	})
	defer unsub()

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := core.Entry{ID: fmt.Sprintf("e%d", i), Date: "2024-01-01", YearMonth: "2024-01", Value: core.Cents(1), Status: core.StatusPaid}
			if err := repo.UpsertEntry(ctx, "u", e); err != nil {
				t.Errorf("upsert %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if newest.Seq != writers || repo.Seq("u", core.CollectionEntries) != writers {
		t.Fatalf("seq = %d, want %d", newest.Seq, writers)
	}
	if list := newest.Data.([]core.Entry); len(list) != writers {
		t.Fatalf("newest update has %d entries, want %d", len(list), writers)
	}
}
