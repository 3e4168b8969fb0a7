// Package services holds the ledger use cases and the per-user sessions
// the dashboard reads from.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"painel/internal/core"
	"painel/internal/dashboard"
	"painel/internal/log"
	"painel/internal/store"
)

var errMissingID = core.NewValidationError("id", "id obrigatório")

// LedgerService validates and writes ledger mutations. Referential checks
// run against the user's session snapshot before the store is touched.
type LedgerService struct {
	store    store.Store
	sessions *SessionManager
	newID    func() string
	log      *log.StructuredLogger
}

func NewLedgerService(st store.Store, sessions *SessionManager) *LedgerService {
	return &LedgerService{
		store:    st,
		sessions: sessions,
		newID:    uuid.NewString,
		log:      log.NewStructuredLogger(log.Default(log.ComponentLedger)),
	}
}

func (s *LedgerService) snapshot(ctx context.Context, userID string) (*core.Snapshot, error) {
	sess, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(), nil
}

// storeErr logs a failed write and wraps it with the operation.
func (s *LedgerService) storeErr(ctx context.Context, op, userID, collection string, err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", op, collection, err)
	}
	s.log.LogError(ctx, "Store write failed", err, log.ComponentLedger, op,
		log.NewFields().WithEntity(userID, collection, "").WithErrorType(log.ErrorTypeDatabase))
	return fmt.Errorf("%s %s: %w", op, collection, err)
}

// CreateEntry validates e and writes it, expanded into installments
// monthly siblings, as one atomic batch.
func (s *LedgerService) CreateEntry(ctx context.Context, userID string, e core.Entry, installments int) ([]core.Entry, error) {
	e = e.Normalize()
	if err := e.Validate(); err != nil {
		return nil, err
	}
	batch, err := ExpandInstallments(e, installments, s.newID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertEntries(ctx, userID, batch); err != nil {
		return nil, s.storeErr(ctx, log.OpCreate, userID, core.CollectionEntries, err)
	}
	s.log.LogEntryWrite(ctx, log.OpCreate, userID, batch[0].ID, e.Value.Cents, len(batch))
	return batch, nil
}

// UpdateEntry replaces an existing entry. Installments do not apply.
func (s *LedgerService) UpdateEntry(ctx context.Context, userID string, e core.Entry) (core.Entry, error) {
	if strings.TrimSpace(e.ID) == "" {
		return core.Entry{}, errMissingID
	}
	e = e.Normalize()
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	if err := s.store.UpdateEntry(ctx, userID, e); err != nil {
		return core.Entry{}, s.storeErr(ctx, log.OpUpdate, userID, core.CollectionEntries, err)
	}
	s.log.LogEntryWrite(ctx, log.OpUpdate, userID, e.ID, e.Value.Cents, 1)
	return e, nil
}

// ToggleEntryStatus flips an entry between paid and pending.
func (s *LedgerService) ToggleEntryStatus(ctx context.Context, userID, id string) (core.Entry, error) {
	if id == "" {
		return core.Entry{}, errMissingID
	}
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return core.Entry{}, err
	}
	e, ok := snap.Entry(id)
	if !ok {
		return core.Entry{}, fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
	}
	if e.Paid() {
		e.Status = core.StatusPending
	} else {
		e.Status = core.StatusPaid
	}
	if err := s.store.UpdateEntry(ctx, userID, e); err != nil {
		return core.Entry{}, s.storeErr(ctx, log.OpToggle, userID, core.CollectionEntries, err)
	}
	s.log.LogMutation(ctx, log.OpToggle, userID, core.CollectionEntries, id)
	return e, nil
}

func (s *LedgerService) DeleteEntry(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return errMissingID
	}
	if err := s.store.DeleteEntry(ctx, userID, id); err != nil {
		return s.storeErr(ctx, log.OpDelete, userID, core.CollectionEntries, err)
	}
	s.log.LogMutation(ctx, log.OpDelete, userID, core.CollectionEntries, id)
	return nil
}

// SaveCategory creates the category when its id is blank and updates it otherwise.
func (s *LedgerService) SaveCategory(ctx context.Context, userID string, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	op, write := log.OpUpdate, s.store.UpdateCategory
	if strings.TrimSpace(c.ID) == "" {
		c.ID = s.newID()
		op, write = log.OpCreate, s.store.UpsertCategory
	}
	if err := write(ctx, userID, c); err != nil {
		return core.Category{}, s.storeErr(ctx, op, userID, core.CollectionCategories, err)
	}
	s.log.LogMutation(ctx, op, userID, core.CollectionCategories, c.ID)
	return c, nil
}

func (s *LedgerService) SaveSubcategory(ctx context.Context, userID string, sc core.Subcategory) (core.Subcategory, error) {
	sc.Name = strings.TrimSpace(sc.Name)
	if err := sc.Validate(); err != nil {
		return core.Subcategory{}, err
	}
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return core.Subcategory{}, err
	}
	if _, ok := snap.Category(sc.CategoryID); !ok {
		return core.Subcategory{}, core.NewValidationError("categoryId", "categoria inexistente")
	}
	op, write := log.OpUpdate, s.store.UpdateSubcategory
	if strings.TrimSpace(sc.ID) == "" {
		sc.ID = s.newID()
		op, write = log.OpCreate, s.store.UpsertSubcategory
	}
	if err := write(ctx, userID, sc); err != nil {
		return core.Subcategory{}, s.storeErr(ctx, op, userID, core.CollectionSubcategories, err)
	}
	s.log.LogMutation(ctx, op, userID, core.CollectionSubcategories, sc.ID)
	return sc, nil
}

func (s *LedgerService) SaveAccount(ctx context.Context, userID string, a core.Account) (core.Account, error) {
	a.Name = strings.TrimSpace(a.Name)
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	op, write := log.OpUpdate, s.store.UpdateAccount
	if strings.TrimSpace(a.ID) == "" {
		a.ID = s.newID()
		op, write = log.OpCreate, s.store.UpsertAccount
	}
	if err := write(ctx, userID, a); err != nil {
		return core.Account{}, s.storeErr(ctx, op, userID, core.CollectionAccounts, err)
	}
	s.log.LogMutation(ctx, op, userID, core.CollectionAccounts, a.ID)
	return a, nil
}

// DeleteCategory refuses while subcategories or entries reference the category.
func (s *LedgerService) DeleteCategory(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return errMissingID
	}
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return err
	}
	if subs, entries := snap.CategoryDependents(id); subs > 0 || entries > 0 {
		return &core.DependentsError{Collection: core.CollectionCategories, ID: id, Subcategories: subs, Entries: entries}
	}
	if err := s.store.DeleteCategory(ctx, userID, id); err != nil {
		return s.storeErr(ctx, log.OpDelete, userID, core.CollectionCategories, err)
	}
	s.log.LogMutation(ctx, log.OpDelete, userID, core.CollectionCategories, id)
	return nil
}

// DeleteSubcategory refuses while entries reference the subcategory.
func (s *LedgerService) DeleteSubcategory(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return errMissingID
	}
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return err
	}
	if n := snap.SubcategoryDependents(id); n > 0 {
		return &core.DependentsError{Collection: core.CollectionSubcategories, ID: id, Entries: n}
	}
	if err := s.store.DeleteSubcategory(ctx, userID, id); err != nil {
		return s.storeErr(ctx, log.OpDelete, userID, core.CollectionSubcategories, err)
	}
	s.log.LogMutation(ctx, log.OpDelete, userID, core.CollectionSubcategories, id)
	return nil
}

// DeleteAccount refuses while entries reference the account.
func (s *LedgerService) DeleteAccount(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return errMissingID
	}
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return err
	}
	if n := snap.AccountDependents(id); n > 0 {
		return &core.DependentsError{Collection: core.CollectionAccounts, ID: id, Entries: n}
	}
	if err := s.store.DeleteAccount(ctx, userID, id); err != nil {
		return s.storeErr(ctx, log.OpDelete, userID, core.CollectionAccounts, err)
	}
	s.log.LogMutation(ctx, log.OpDelete, userID, core.CollectionAccounts, id)
	return nil
}

// SaveConfig merge-writes the config and, once stored, applies it to the
// session. A partial date range stays in the session but is not stored.
func (s *LedgerService) SaveConfig(ctx context.Context, userID string, p core.ConfigPatch) (core.Config, error) {
	sess, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return core.Config{}, err
	}
	if err := s.store.MergeConfig(ctx, userID, p); err != nil {
		return core.Config{}, s.storeErr(ctx, log.OpUpdate, userID, "config", err)
	}
	return sess.applyConfig(p), nil
}

// ApplyPreset sets the date filter to a preset relative to now.
func (s *LedgerService) ApplyPreset(ctx context.Context, userID string, preset dashboard.Preset, now time.Time) (core.Config, error) {
	r, err := dashboard.PresetRange(preset, core.DayOf(now))
	if err != nil {
		return core.Config{}, core.NewValidationError("preset", err.Error())
	}
	if r == nil {
		r = &core.DateRange{}
	}
	return s.SaveConfig(ctx, userID, core.ConfigPatch{DateRange: r})
}

// InitializeDefaultData deletes every entry of a user that has no categories.
func (s *LedgerService) InitializeDefaultData(ctx context.Context, userID string) error {
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return err
	}
	if len(snap.Categories) > 0 || len(snap.Entries) == 0 {
		return nil
	}
	ids := make([]string, len(snap.Entries))
	for i, e := range snap.Entries {
		ids[i] = e.ID
	}
	if err := s.store.DeleteEntries(ctx, userID, ids); err != nil {
		return s.storeErr(ctx, log.OpDelete, userID, core.CollectionEntries, err)
	}
	s.log.LogMutation(ctx, log.OpDelete, userID, core.CollectionEntries, "")
	return nil
}
