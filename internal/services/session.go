package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"painel/internal/core"
	"painel/internal/dashboard"
	"painel/internal/log"
	"painel/internal/store"
)

// Session is the live state of one user: the snapshot kept current by
// store subscriptions plus the dashboard UI state.
type Session struct {
	userID string
	logger *log.Logger

	mu        sync.RWMutex
	snapshot  *core.Snapshot
	config    core.Config
	sort      dashboard.SortSpec
	selection dashboard.MetricSelection
	version   uint64
	// seqs is the last applied sequence per collection
	seqs map[string]uint64

	onChange    func(userID string)
	unsubscribe func()
	// lastUsed is unix nanoseconds of the last SessionManager.Get
	lastUsed atomic.Int64
}

// LoadSession subscribes to the user's collections and loads them, and
// the config, concurrently. A collection delivered by the subscription
// while loading wins only when it is newer than the loaded copy.
func LoadSession(ctx context.Context, st store.Store, userID string, now time.Time, onChange func(string)) (*Session, error) {
	s := &Session{
		userID:    userID,
		logger:    log.Default(log.ComponentSession).WithUser(userID),
		snapshot:  core.EmptySnapshot(),
		config:    core.DefaultConfig(now),
		sort:      dashboard.DefaultSort(),
		selection: dashboard.DefaultSelection(),
		seqs:      make(map[string]uint64),
		onChange:  onChange,
	}
	s.unsubscribe = st.SubscribeAll(userID, s.apply)
	base := make(map[string]uint64, 4)
	for _, c := range store.Collections() {
		base[c] = st.Seq(userID, c)
	}

	var (
		accounts      []core.Account
		categories    []core.Category
		subcategories []core.Subcategory
		entries       []core.Entry
		patch         core.ConfigPatch
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		accounts, err = st.ListAccounts(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		categories, err = st.ListCategories(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		subcategories, err = st.ListSubcategories(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		entries, err = st.ListEntries(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		patch, err = st.ReadConfig(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.unsubscribe()
		return nil, fmt.Errorf("load session %s: %w", userID, err)
	}

	s.mu.Lock()
	loaded := []core.Update{
		core.AccountsUpdate(accounts),
		core.CategoriesUpdate(categories),
		core.SubcategoriesUpdate(subcategories),
		core.EntriesUpdate(entries),
	}
	for _, u := range loaded {
		if s.seqs[u.Type] > base[u.Type] {
			continue
		}
		next, err := s.snapshot.Replace(u)
		if err != nil {
			s.mu.Unlock()
			s.unsubscribe()
			return nil, err
		}
		s.snapshot = next
		s.seqs[u.Type] = base[u.Type]
	}
	s.config = s.config.Apply(patch)
	s.version++
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Session loaded",
		"accounts", len(accounts),
		"categories", len(categories),
		"subcategories", len(subcategories),
		"entries", len(entries))
	return s, nil
}

// apply swaps one collection into the snapshot. A sequenced update older
// than the last one applied to its collection is dropped.
func (s *Session) apply(u core.Update) {
	s.mu.Lock()
	if u.Seq != 0 && u.Seq <= s.seqs[u.Type] {
		last := s.seqs[u.Type]
		s.mu.Unlock()
		s.logger.Debug("Dropped stale update", log.FieldCollection, u.Type, "seq", u.Seq, "last_seq", last)
		return
	}
	next, err := s.snapshot.Replace(u)
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("Dropped malformed update", log.FieldCollection, u.Type, log.FieldError, err)
		return
	}
	s.snapshot = next
	if u.Seq != 0 {
		s.seqs[u.Type] = u.Seq
	}
	s.version++
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(s.userID)
	}
}

func (s *Session) UserID() string { return s.userID }

func (s *Session) touch(t time.Time) { s.lastUsed.Store(t.UnixNano()) }

func (s *Session) idleSince(cutoff time.Time) bool {
	return s.lastUsed.Load() < cutoff.UnixNano()
}

// Snapshot returns the current immutable snapshot.
func (s *Session) Snapshot() *core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Version grows on every snapshot change.
func (s *Session) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Session) Config() core.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// applyConfig merges a patch that the store already accepted.
func (s *Session) applyConfig(p core.ConfigPatch) core.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = s.config.Apply(p)
	return s.config
}

func (s *Session) Sort() dashboard.SortSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sort
}

// ToggleSort applies a header click and returns the new order.
func (s *Session) ToggleSort(col dashboard.SortColumn) (dashboard.SortSpec, error) {
	if !col.Valid() {
		return dashboard.SortSpec{}, core.NewValidationError("col", "coluna inválida")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = s.sort.Toggle(col)
	return s.sort, nil
}

func (s *Session) Selection() dashboard.MetricSelection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

// SetMetric retargets one KPI tile.
func (s *Session) SetMetric(index int, metric string) (dashboard.MetricSelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.selection.Set(index, metric)
	if err != nil {
		return s.selection, core.NewValidationError("index", err.Error())
	}
	s.selection = next
	return next, nil
}

// ViewRequest captures the session state for the dashboard.
func (s *Session) ViewRequest(filter dashboard.TableFilter) dashboard.ViewRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return dashboard.ViewRequest{
		UserID:    s.userID,
		Version:   s.version,
		Snapshot:  s.snapshot,
		Config:    s.config,
		Filter:    filter,
		Sort:      s.sort,
		Selection: s.selection,
	}
}

// Close stops the store subscriptions.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// loadTimeout bounds a shared session load, which outlives its callers.
const loadTimeout = 30 * time.Second

// SessionManager keeps one session per user, loading it on first use.
type SessionManager struct {
	store    store.Store
	now      func() time.Time
	onChange func(string)

	mu       sync.Mutex
	sessions map[string]*Session
	idleTTL  time.Duration
	loads    singleflight.Group
}

// NewSessionManager creates a manager. onChange, when set, is called after
// every snapshot change of any session and when a session is dropped or
// evicted.
func NewSessionManager(st store.Store, now func() time.Time, onChange func(userID string)) *SessionManager {
	if now == nil {
		now = time.Now
	}
	return &SessionManager{
		store:    st,
		now:      now,
		onChange: onChange,
		sessions: make(map[string]*Session),
	}
}

// SetIdleTTL makes CleanExpired evict sessions not fetched for ttl. Zero
// keeps sessions until they are dropped.
func (m *SessionManager) SetIdleTTL(ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idleTTL = ttl
}

// Get returns the user's session. Concurrent first calls share one load,
// which is detached from the caller's cancellation so one client going
// away does not fail the others.
func (m *SessionManager) Get(ctx context.Context, userID string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		s.touch(m.now())
	}
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	v, err, _ := m.loads.Do(userID, func() (any, error) {
		m.mu.Lock()
		if s, ok := m.sessions[userID]; ok {
			m.mu.Unlock()
			return s, nil
		}
		m.mu.Unlock()

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		s, err := LoadSession(loadCtx, m.store, userID, m.now(), m.onChange)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		s.touch(m.now())
		m.sessions[userID] = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Drop closes and forgets a user's session.
func (m *SessionManager) Drop(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if ok {
		s.Close()
		if m.onChange != nil {
			m.onChange(userID)
		}
	}
}

// CleanExpired closes the sessions idle for longer than the idle TTL and
// returns how many were evicted. Cached views of an evicted user are
// invalidated through onChange, since a reload restarts the version.
func (m *SessionManager) CleanExpired() int {
	m.mu.Lock()
	if m.idleTTL <= 0 {
		m.mu.Unlock()
		return 0
	}
	cutoff := m.now().Add(-m.idleTTL)
	var idle []*Session
	for id, s := range m.sessions {
		if s.idleSince(cutoff) {
			delete(m.sessions, id)
			idle = append(idle, s)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
		if m.onChange != nil {
			m.onChange(s.userID)
		}
	}
	return len(idle)
}

// Len is the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close closes every session.
func (m *SessionManager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
