package store

import (
	"context"
	"errors"
	"testing"

	"painel/internal/core"
)

type fakeNotifier struct {
	calls []string
	err   error
}

func (f *fakeNotifier) NotifyChange(_ context.Context, userID, collection string) error {
	f.calls = append(f.calls, userID+"/"+collection)
	return f.err
}

func TestHubDeliversPerUserAndCollection(t *testing.T) {
	h := NewHub()
	var got []core.Update
	unsub := h.Subscribe("u1", core.CollectionEntries, func(u core.Update) { got = append(got, u) })

	h.Publish(context.Background(), "u1", core.EntriesUpdate([]core.Entry{{ID: "e1"}}))
	h.Publish(context.Background(), "u2", core.EntriesUpdate(nil))
	h.Publish(context.Background(), "u1", core.AccountsUpdate(nil))

	if len(got) != 1 || got[0].Type != core.CollectionEntries {
		t.Fatalf("unexpected deliveries %+v", got)
	}

	unsub()
	unsub()
	h.Publish(context.Background(), "u1", core.EntriesUpdate(nil))
	if len(got) != 1 {
		t.Fatal("delivered after unsubscribe")
	}
	if h.Subscribers("u1") != 0 {
		t.Fatal("subscription leaked")
	}
}

func TestHubSubscribeAll(t *testing.T) {
	h := NewHub()
	seen := map[string]int{}
	unsub := h.SubscribeAll("u1", func(u core.Update) { seen[u.Type]++ })
	if h.Subscribers("u1") != 4 {
		t.Fatalf("expected 4 subscriptions, got %d", h.Subscribers("u1"))
	}
	for _, c := range Collections() {
		h.Publish(context.Background(), "u1", core.Update{Type: c})
	}
	if len(seen) != 4 {
		t.Fatalf("seen = %v", seen)
	}
	unsub()
	if h.Subscribers("u1") != 0 {
		t.Fatal("SubscribeAll unsubscribe left handlers behind")
	}
}

func TestHubNotifier(t *testing.T) {
	h := NewHub()
	n := &fakeNotifier{err: errors.New("broker down")}
	h.SetNotifier(n)
	h.Publish(context.Background(), "u1", core.CategoriesUpdate(nil))
	if len(n.calls) != 1 || n.calls[0] != "u1/categorias" {
		t.Fatalf("notifier calls = %v", n.calls)
	}
}
