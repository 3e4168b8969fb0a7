// Package store defines the persistence ports of the ledger. Every call is
// scoped to one user; records of different users never mix.
package store

import (
	"context"

	"painel/internal/core"
)

// Ports for storage adapters.
type (
	AccountStore interface {
		ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
		// UpsertAccount creates or replaces the account with a.ID.
		UpsertAccount(ctx context.Context, userID string, a core.Account) error
		// UpdateAccount replaces an existing account; core.ErrNotFound otherwise.
		UpdateAccount(ctx context.Context, userID string, a core.Account) error
		DeleteAccount(ctx context.Context, userID, id string) error
	}

	CategoryStore interface {
		ListCategories(ctx context.Context, userID string) ([]core.Category, error)
		UpsertCategory(ctx context.Context, userID string, c core.Category) error
		UpdateCategory(ctx context.Context, userID string, c core.Category) error
		DeleteCategory(ctx context.Context, userID, id string) error
	}

	SubcategoryStore interface {
		ListSubcategories(ctx context.Context, userID string) ([]core.Subcategory, error)
		UpsertSubcategory(ctx context.Context, userID string, sc core.Subcategory) error
		UpdateSubcategory(ctx context.Context, userID string, sc core.Subcategory) error
		DeleteSubcategory(ctx context.Context, userID, id string) error
	}

	EntryStore interface {
		ListEntries(ctx context.Context, userID string) ([]core.Entry, error)
		UpsertEntry(ctx context.Context, userID string, e core.Entry) error
		// UpsertEntries writes every entry or none of them.
		UpsertEntries(ctx context.Context, userID string, entries []core.Entry) error
		UpdateEntry(ctx context.Context, userID string, e core.Entry) error
		DeleteEntry(ctx context.Context, userID, id string) error
		// DeleteEntries removes every listed entry or none of them.
		DeleteEntries(ctx context.Context, userID string, ids []string) error
	}

	ConfigStore interface {
		// ReadConfig returns the stored fields as a patch. Fields never
		// written are nil, as is a range that is not stored.
		ReadConfig(ctx context.Context, userID string) (core.ConfigPatch, error)
		// MergeConfig writes the non-nil fields of p. A complete date range
		// is stored as a timestamp pair; any other range clears it.
		MergeConfig(ctx context.Context, userID string, p core.ConfigPatch) error
	}

	// Subscriber delivers the full collection after every change. Updates
	// carry a per-collection Seq; deliveries may arrive out of order.
	Subscriber interface {
		Subscribe(userID, collection string, fn func(core.Update)) (unsubscribe func())
		SubscribeAll(userID string, fn func(core.Update)) (unsubscribe func())
		// Seq is the last sequence stamped on the user's collection. A
		// read that starts after Seq returns n is at least as new as
		// update n.
		Seq(userID, collection string) uint64
	}

	// Store is the full port used by the services.
	Store interface {
		AccountStore
		CategoryStore
		SubcategoryStore
		EntryStore
		ConfigStore
		Subscriber
		Close() error
	}

	// ChangeNotifier tells other processes that a collection changed.
	ChangeNotifier interface {
		NotifyChange(ctx context.Context, userID, collection string) error
	}
)

// Collections lists the four collection names in load order.
func Collections() []string {
	return []string{
		core.CollectionAccounts,
		core.CollectionCategories,
		core.CollectionSubcategories,
		core.CollectionEntries,
	}
}
