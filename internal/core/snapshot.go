package core

import "fmt"

// Update replaces one collection wholesale. Data holds the full record list
// of the collection named by Type. Seq orders the updates of one user's
// collection; zero means unsequenced.
type Update struct {
	Type string `json:"type"`
	Data any    `json:"data"`
	Seq  uint64 `json:"seq,omitempty"`
}

func AccountsUpdate(list []Account) Update {
	return Update{Type: CollectionAccounts, Data: list}
}

func CategoriesUpdate(list []Category) Update {
	return Update{Type: CollectionCategories, Data: list}
}

func SubcategoriesUpdate(list []Subcategory) Update {
	return Update{Type: CollectionSubcategories, Data: list}
}

func EntriesUpdate(list []Entry) Update {
	return Update{Type: CollectionEntries, Data: list}
}

// Snapshot is an immutable view of one user's four collections. Callers
// must not modify the slices; use Replace to derive a new snapshot.
type Snapshot struct {
	Accounts      []Account
	Categories    []Category
	Subcategories []Subcategory
	Entries       []Entry

	accountIdx     map[string]int
	categoryIdx    map[string]int
	subcategoryIdx map[string]int
}

// NewSnapshot indexes the collections by id. When ids repeat, the first
// record wins.
func NewSnapshot(accounts []Account, categories []Category, subcategories []Subcategory, entries []Entry) *Snapshot {
	s := &Snapshot{
		Accounts:      accounts,
		Categories:    categories,
		Subcategories: subcategories,
		Entries:       entries,
	}
	s.reindex()
	return s
}

// EmptySnapshot has no records.
func EmptySnapshot() *Snapshot {
	return NewSnapshot(nil, nil, nil, nil)
}

func (s *Snapshot) reindex() {
	s.accountIdx = make(map[string]int, len(s.Accounts))
	for i, a := range s.Accounts {
		if _, dup := s.accountIdx[a.ID]; !dup {
			s.accountIdx[a.ID] = i
		}
	}
	s.categoryIdx = make(map[string]int, len(s.Categories))
	for i, c := range s.Categories {
		if _, dup := s.categoryIdx[c.ID]; !dup {
			s.categoryIdx[c.ID] = i
		}
	}
	s.subcategoryIdx = make(map[string]int, len(s.Subcategories))
	for i, sc := range s.Subcategories {
		if _, dup := s.subcategoryIdx[sc.ID]; !dup {
			s.subcategoryIdx[sc.ID] = i
		}
	}
}

// Replace returns a copy of s with the collection named by u swapped.
func (s *Snapshot) Replace(u Update) (*Snapshot, error) {
	next := NewSnapshot(s.Accounts, s.Categories, s.Subcategories, s.Entries)
	switch data := u.Data.(type) {
	case []Account:
		next.Accounts = data
	case []Category:
		next.Categories = data
	case []Subcategory:
		next.Subcategories = data
	case []Entry:
		next.Entries = data
	default:
		return s, fmt.Errorf("unsupported update %q with data %T", u.Type, u.Data)
	}
	next.reindex()
	return next, nil
}

func (s *Snapshot) Account(id string) (Account, bool) {
	if i, ok := s.accountIdx[id]; ok {
		return s.Accounts[i], true
	}
	return Account{}, false
}

func (s *Snapshot) Category(id string) (Category, bool) {
	if i, ok := s.categoryIdx[id]; ok {
		return s.Categories[i], true
	}
	return Category{}, false
}

func (s *Snapshot) Subcategory(id string) (Subcategory, bool) {
	if i, ok := s.subcategoryIdx[id]; ok {
		return s.Subcategories[i], true
	}
	return Subcategory{}, false
}

// CategoryName returns "" for an unknown id.
func (s *Snapshot) CategoryName(id string) string {
	c, _ := s.Category(id)
	return c.Name
}

func (s *Snapshot) SubcategoryName(id string) string {
	sc, _ := s.Subcategory(id)
	return sc.Name
}

func (s *Snapshot) AccountName(id string) string {
	a, _ := s.Account(id)
	return a.Name
}

// SignedValue is the entry value with its category sign applied. An entry
// with an unknown category counts as an inflow.
func (s *Snapshot) SignedValue(e Entry) Money {
	c, _ := s.Category(e.CategoryID)
	return e.Value.Times(c.Group.Sign())
}

// SubcategoriesOf returns the children of a category in store order.
func (s *Snapshot) SubcategoriesOf(categoryID string) []Subcategory {
	var out []Subcategory
	for _, sc := range s.Subcategories {
		if sc.CategoryID == categoryID {
			out = append(out, sc)
		}
	}
	return out
}

// CategoryDependents counts the subcategories and entries referencing a category.
func (s *Snapshot) CategoryDependents(id string) (subcategories, entries int) {
	for _, sc := range s.Subcategories {
		if sc.CategoryID == id {
			subcategories++
		}
	}
	for _, e := range s.Entries {
		if e.CategoryID == id {
			entries++
		}
	}
	return subcategories, entries
}

func (s *Snapshot) SubcategoryDependents(id string) int {
	n := 0
	for _, e := range s.Entries {
		if e.SubcategoryID == id {
			n++
		}
	}
	return n
}

func (s *Snapshot) AccountDependents(id string) int {
	n := 0
	for _, e := range s.Entries {
		if e.AccountID == id {
			n++
		}
	}
	return n
}

// Entry looks an entry up by id.
func (s *Snapshot) Entry(id string) (Entry, bool) {
	for _, e := range s.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}
