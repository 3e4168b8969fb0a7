// Package memory is an in-process store used for development and tests.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"painel/internal/core"
	"painel/internal/store"
)

var _ store.Store = (*Store)(nil)

// Seed is the initial data every new user starts with.
type Seed struct {
	Accounts      []core.Account
	Categories    []core.Category
	Subcategories []core.Subcategory
	Entries       []core.Entry
}

type Store struct {
	*store.Hub

	mu    sync.Mutex
	loc   *time.Location
	seed  Seed
	users map[string]*userData
}

type userData struct {
	accounts      collection[core.Account]
	categories    collection[core.Category]
	subcategories collection[core.Subcategory]
	entries       collection[core.Entry]
	config        storedConfig
}

// storedConfig mirrors the persisted document: the range is kept as a
// pair of unix milliseconds, both or neither.
type storedConfig struct {
	fromMs, toMs *int64
	privacy      *bool
	name         *string
	theme        *core.Theme
}

// New creates an empty store. loc is the zone used to persist date ranges.
func New(loc *time.Location, seed Seed) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{
		Hub:   store.NewHub(),
		loc:   loc,
		seed:  seed,
		users: make(map[string]*userData),
	}
}

// NewFromDir loads the seed from accounts.json, categorias.json,
// subcategorias.json and entries.json in dir. Missing files are skipped;
// without any category file a small default taxonomy is used.
func NewFromDir(dir string, loc *time.Location) (*Store, error) {
	var seed Seed
	files := []struct {
		name string
		dst  any
	}{
		{core.CollectionAccounts + ".json", &seed.Accounts},
		{core.CollectionCategories + ".json", &seed.Categories},
		{core.CollectionSubcategories + ".json", &seed.Subcategories},
		{core.CollectionEntries + ".json", &seed.Entries},
	}
	for _, f := range files {
		if dir == "" {
			break
		}
		if err := readJSON(filepath.Join(dir, f.name), f.dst); err != nil {
			return nil, err
		}
	}
	if len(seed.Categories) == 0 {
		seed = DefaultSeed()
	}
	slog.Info("Memory store seeded",
		"component", "store",
		"accounts", len(seed.Accounts),
		"categories", len(seed.Categories),
		"subcategories", len(seed.Subcategories),
		"entries", len(seed.Entries))
	return New(loc, seed), nil
}

// DefaultSeed is the taxonomy used when no seed files exist.
func DefaultSeed() Seed {
	return Seed{
		Accounts: []core.Account{{ID: "carteira", Name: "Carteira"}},
		Categories: []core.Category{
			{ID: "salario", Name: "Salário", Group: core.GroupEntrada},
			{ID: "moradia", Name: "Moradia", Group: core.GroupSaida},
			{ID: "alimentacao", Name: "Alimentação", Group: core.GroupSaida},
		},
		Subcategories: []core.Subcategory{
			{ID: "aluguel", Name: "Aluguel", CategoryID: "moradia"},
			{ID: "mercado", Name: "Mercado", CategoryID: "alimentacao"},
		},
	}
}

func readJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read seed %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode seed %s: %w", path, err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

// user returns the user's data, seeding it on first access. Callers hold s.mu.
func (s *Store) user(id string) *userData {
	u, ok := s.users[id]
	if !ok {
		u = &userData{
			accounts:      newCollection(s.seed.Accounts, func(a core.Account) string { return a.ID }),
			categories:    newCollection(s.seed.Categories, func(c core.Category) string { return c.ID }),
			subcategories: newCollection(s.seed.Subcategories, func(sc core.Subcategory) string { return sc.ID }),
			entries:       newCollection(s.seed.Entries, func(e core.Entry) string { return e.ID }),
		}
		s.users[id] = u
	}
	return u
}

// write runs fn under the lock and publishes the resulting collection,
// stamped before the lock is released.
func write[T any](ctx context.Context, s *Store, userID string, pick func(*userData) *collection[T], wrap func([]T) core.Update, fn func(*collection[T]) error) error {
	s.mu.Lock()
	c := pick(s.user(userID))
	if err := fn(c); err != nil {
		s.mu.Unlock()
		return err
	}
	u := s.Stamp(userID, wrap(c.list()))
	s.mu.Unlock()

	s.Publish(ctx, userID, u)
	return nil
}

func read[T any](s *Store, userID string, pick func(*userData) *collection[T]) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pick(s.user(userID)).list()
}

func accountsOf(u *userData) *collection[core.Account] { return &u.accounts }
func categoriesOf(u *userData) *collection[core.Category] { return &u.categories }
func subcategoriesOf(u *userData) *collection[core.Subcategory] { return &u.subcategories }
func entriesOf(u *userData) *collection[core.Entry] { return &u.entries }

func (s *Store) ListAccounts(_ context.Context, userID string) ([]core.Account, error) {
	return read(s, userID, accountsOf), nil
}

func (s *Store) UpsertAccount(ctx context.Context, userID string, a core.Account) error {
	return write(ctx, s, userID, accountsOf, core.AccountsUpdate, func(c *collection[core.Account]) error {
		return c.upsert(a)
	})
}

func (s *Store) UpdateAccount(ctx context.Context, userID string, a core.Account) error {
	return write(ctx, s, userID, accountsOf, core.AccountsUpdate, func(c *collection[core.Account]) error {
		return c.update(a)
	})
}

func (s *Store) DeleteAccount(ctx context.Context, userID, id string) error {
	return write(ctx, s, userID, accountsOf, core.AccountsUpdate, func(c *collection[core.Account]) error {
		return c.delete(id)
	})
}

func (s *Store) ListCategories(_ context.Context, userID string) ([]core.Category, error) {
	return read(s, userID, categoriesOf), nil
}

func (s *Store) UpsertCategory(ctx context.Context, userID string, cat core.Category) error {
	return write(ctx, s, userID, categoriesOf, core.CategoriesUpdate, func(c *collection[core.Category]) error {
		return c.upsert(cat)
	})
}

func (s *Store) UpdateCategory(ctx context.Context, userID string, cat core.Category) error {
	return write(ctx, s, userID, categoriesOf, core.CategoriesUpdate, func(c *collection[core.Category]) error {
		return c.update(cat)
	})
}

func (s *Store) DeleteCategory(ctx context.Context, userID, id string) error {
	return write(ctx, s, userID, categoriesOf, core.CategoriesUpdate, func(c *collection[core.Category]) error {
		return c.delete(id)
	})
}

func (s *Store) ListSubcategories(_ context.Context, userID string) ([]core.Subcategory, error) {
	return read(s, userID, subcategoriesOf), nil
}

func (s *Store) UpsertSubcategory(ctx context.Context, userID string, sc core.Subcategory) error {
	return write(ctx, s, userID, subcategoriesOf, core.SubcategoriesUpdate, func(c *collection[core.Subcategory]) error {
		return c.upsert(sc)
	})
}

func (s *Store) UpdateSubcategory(ctx context.Context, userID string, sc core.Subcategory) error {
	return write(ctx, s, userID, subcategoriesOf, core.SubcategoriesUpdate, func(c *collection[core.Subcategory]) error {
		return c.update(sc)
	})
}

func (s *Store) DeleteSubcategory(ctx context.Context, userID, id string) error {
	return write(ctx, s, userID, subcategoriesOf, core.SubcategoriesUpdate, func(c *collection[core.Subcategory]) error {
		return c.delete(id)
	})
}

func (s *Store) ListEntries(_ context.Context, userID string) ([]core.Entry, error) {
	return read(s, userID, entriesOf), nil
}

func (s *Store) UpsertEntry(ctx context.Context, userID string, e core.Entry) error {
	return write(ctx, s, userID, entriesOf, core.EntriesUpdate, func(c *collection[core.Entry]) error {
		return c.upsert(e)
	})
}

func (s *Store) UpsertEntries(ctx context.Context, userID string, entries []core.Entry) error {
	for _, e := range entries {
		if e.ID == "" {
			return core.ErrEmptyID
		}
	}
	return write(ctx, s, userID, entriesOf, core.EntriesUpdate, func(c *collection[core.Entry]) error {
		for _, e := range entries {
			// ids were checked above, so upsert cannot fail halfway
			_ = c.upsert(e)
		}
		return nil
	})
}

func (s *Store) UpdateEntry(ctx context.Context, userID string, e core.Entry) error {
	return write(ctx, s, userID, entriesOf, core.EntriesUpdate, func(c *collection[core.Entry]) error {
		return c.update(e)
	})
}

func (s *Store) DeleteEntry(ctx context.Context, userID, id string) error {
	return write(ctx, s, userID, entriesOf, core.EntriesUpdate, func(c *collection[core.Entry]) error {
		return c.delete(id)
	})
}

func (s *Store) DeleteEntries(ctx context.Context, userID string, ids []string) error {
	return write(ctx, s, userID, entriesOf, core.EntriesUpdate, func(c *collection[core.Entry]) error {
		for _, id := range ids {
			if !c.has(id) {
				return fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
			}
		}
		for _, id := range ids {
			_ = c.delete(id)
		}
		return nil
	})
}

func (s *Store) ReadConfig(_ context.Context, userID string) (core.ConfigPatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.user(userID).config
	var p core.ConfigPatch
	if cfg.fromMs != nil && cfg.toMs != nil {
		r := core.RangeFromTimestamps(time.UnixMilli(*cfg.fromMs), time.UnixMilli(*cfg.toMs), s.loc)
		p.DateRange = &r
	}
	p.Privacy = cfg.privacy
	p.Name = cfg.name
	p.Theme = cfg.theme
	return p, nil
}

func (s *Store) MergeConfig(_ context.Context, userID string, p core.ConfigPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := &s.user(userID).config
	if p.DateRange != nil {
		if p.DateRange.Complete() {
			from, to := p.DateRange.Timestamps(s.loc)
			f, t := from.UnixMilli(), to.UnixMilli()
			cfg.fromMs, cfg.toMs = &f, &t
		} else {
			cfg.fromMs, cfg.toMs = nil, nil
		}
	}
	if p.Privacy != nil {
		v := *p.Privacy
		cfg.privacy = &v
	}
	if p.Name != nil {
		v := *p.Name
		cfg.name = &v
	}
	if p.Theme != nil {
		v := p.Theme.OrDefault()
		cfg.theme = &v
	}
	return nil
}
