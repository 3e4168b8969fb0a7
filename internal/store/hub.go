package store

import (
	"context"
	"log/slog"
	"sync"

	"painel/internal/core"
)

// Hub fans collection updates out to subscribers. Handlers run on the
// publishing goroutine, outside the hub lock, and must not write to the
// store. Concurrent publishes may reach a handler in any order; handlers
// compare Update.Seq to discard stale copies.
type Hub struct {
	mu       sync.RWMutex
	nextID   int
	subs     map[hubKey]map[int]func(core.Update)
	seqs     map[hubKey]uint64
	notifier ChangeNotifier
}

type hubKey struct {
	userID     string
	collection string
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[hubKey]map[int]func(core.Update)),
		seqs: make(map[hubKey]uint64),
	}
}

// Stamp gives u the next sequence number of the user's collection. Stores
// call it while still holding the lock under which u.Data was read, so the
// numbers follow write order even when deliveries do not.
func (h *Hub) Stamp(userID string, u core.Update) core.Update {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := hubKey{userID, u.Type}
	h.seqs[key]++
	u.Seq = h.seqs[key]
	return u
}

// SetNotifier installs a cross-process notifier called after local delivery.
func (h *Hub) SetNotifier(n ChangeNotifier) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notifier = n
}

func (h *Hub) Subscribe(userID, collection string, fn func(core.Update)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := hubKey{userID, collection}
	id := h.nextID
	h.nextID++
	if h.subs[key] == nil {
		h.subs[key] = make(map[int]func(core.Update))
	}
	h.subs[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[key], id)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
		})
	}
}

func (h *Hub) Seq(userID, collection string) uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seqs[hubKey{userID, collection}]
}

// SubscribeAll subscribes fn to the four collections of a user.
func (h *Hub) SubscribeAll(userID string, fn func(core.Update)) func() {
	var unsubs []func()
	for _, c := range Collections() {
		unsubs = append(unsubs, h.Subscribe(userID, c, fn))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Publish delivers u to the user's subscribers of u.Type and then notifies
// other processes.
func (h *Hub) Publish(ctx context.Context, userID string, u core.Update) {
	h.mu.RLock()
	key := hubKey{userID, u.Type}
	handlers := make([]func(core.Update), 0, len(h.subs[key]))
	for _, fn := range h.subs[key] {
		handlers = append(handlers, fn)
	}
	notifier := h.notifier
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(u)
	}

	if notifier != nil {
		if err := notifier.NotifyChange(ctx, userID, u.Type); err != nil {
			slog.WarnContext(ctx, "Failed to publish change notification",
				"component", "store",
				"user_id", userID,
				"collection", u.Type,
				"error", err)
		}
	}
}

// Subscribers counts the handlers registered for a user, across collections.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for k, m := range h.subs {
		if k.userID == userID {
			n += len(m)
		}
	}
	return n
}
