// Package storage is the SQLite implementation of the ledger store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"painel/internal/core"
	"painel/internal/store"
)

var _ store.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	*store.Hub

	db  *sql.DB
	loc *time.Location

	// reload serializes the post-write reread with its stamp
	reload sync.Mutex
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath
// and migrates it. loc is the zone used to persist date ranges.
func NewSQLiteRepository(dbPath string, loc *time.Location) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer keeps batch transactions from hitting SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if loc == nil {
		loc = time.Local
	}
	return &SQLiteRepository{Hub: store.NewHub(), db: db, loc: loc}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// execOne runs a single-row write and maps "no row touched" to ErrNotFound.
func (r *SQLiteRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// publish re-reads a collection after a write and fans it out. A later
// reread sees every commit an earlier one saw, so stamping under reload
// keeps sequence order in step with the data. A failed read is logged;
// the write itself already succeeded.
func (r *SQLiteRepository) publish(ctx context.Context, userID, collection string) {
	var (
		u   core.Update
		err error
	)
	r.reload.Lock()
	switch collection {
	case core.CollectionAccounts:
		var list []core.Account
		list, err = r.ListAccounts(ctx, userID)
		u = core.AccountsUpdate(list)
	case core.CollectionCategories:
		var list []core.Category
		list, err = r.ListCategories(ctx, userID)
		u = core.CategoriesUpdate(list)
	case core.CollectionSubcategories:
		var list []core.Subcategory
		list, err = r.ListSubcategories(ctx, userID)
		u = core.SubcategoriesUpdate(list)
	case core.CollectionEntries:
		var list []core.Entry
		list, err = r.ListEntries(ctx, userID)
		u = core.EntriesUpdate(list)
	}
	if err != nil {
		r.reload.Unlock()
		slog.ErrorContext(ctx, "Failed to reload collection after write",
			"component", "storage", "user_id", userID, "collection", collection, "error", err)
		return
	}
	u = r.Stamp(userID, u)
	r.reload.Unlock()
	r.Publish(ctx, userID, u)
}

// Accounts

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, initial_balance_cents FROM accounts WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.InitialBalance.Cents); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpsertAccount(ctx context.Context, userID string, a core.Account) error {
	if a.ID == "" {
		return core.ErrEmptyID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, id, name, initial_balance_cents) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET name = excluded.name, initial_balance_cents = excluded.initial_balance_cents`,
		userID, a.ID, a.Name, a.InitialBalance.Cents)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	r.publish(ctx, userID, core.CollectionAccounts)
	return nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, userID string, a core.Account) error {
	err := r.execOne(ctx, "update account",
		`UPDATE accounts SET name = ?, initial_balance_cents = ? WHERE user_id = ? AND id = ?`,
		a.Name, a.InitialBalance.Cents, userID, a.ID)
	if err != nil {
		return err
	}
	r.publish(ctx, userID, core.CollectionAccounts)
	return nil
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, userID, id string) error {
	if err := r.execOne(ctx, "delete account", `DELETE FROM accounts WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return err
	}
	r.publish(ctx, userID, core.CollectionAccounts)
	return nil
}

// Categories

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, grp FROM categories WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Group); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpsertCategory(ctx context.Context, userID string, c core.Category) error {
	if c.ID == "" {
		return core.ErrEmptyID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (user_id, id, name, grp) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET name = excluded.name, grp = excluded.grp`,
		userID, c.ID, c.Name, string(c.Group))
	if err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	r.publish(ctx, userID, core.CollectionCategories)
	return nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, userID string, c core.Category) error {
	err := r.execOne(ctx, "update category",
		`UPDATE categories SET name = ?, grp = ? WHERE user_id = ? AND id = ?`,
		c.Name, string(c.Group), userID, c.ID)
	if err != nil {
		return err
	}
	r.publish(ctx, userID, core.CollectionCategories)
	return nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	if err := r.execOne(ctx, "delete category", `DELETE FROM categories WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return err
	}
	r.publish(ctx, userID, core.CollectionCategories)
	return nil
}

// Subcategories

func (r *SQLiteRepository) ListSubcategories(ctx context.Context, userID string) ([]core.Subcategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, category_id FROM subcategories WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	defer rows.Close()

	var out []core.Subcategory
	for rows.Next() {
		var sc core.Subcategory
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.CategoryID); err != nil {
			return nil, fmt.Errorf("scan subcategory: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpsertSubcategory(ctx context.Context, userID string, sc core.Subcategory) error {
	if sc.ID == "" {
		return core.ErrEmptyID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subcategories (user_id, id, name, category_id) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET name = excluded.name, category_id = excluded.category_id`,
		userID, sc.ID, sc.Name, sc.CategoryID)
	if err != nil {
		return fmt.Errorf("upsert subcategory: %w", err)
	}
	r.publish(ctx, userID, core.CollectionSubcategories)
	return nil
}

func (r *SQLiteRepository) UpdateSubcategory(ctx context.Context, userID string, sc core.Subcategory) error {
	err := r.execOne(ctx, "update subcategory",
		`UPDATE subcategories SET name = ?, category_id = ? WHERE user_id = ? AND id = ?`,
		sc.Name, sc.CategoryID, userID, sc.ID)
	if err != nil {
		return err
	}
	r.publish(ctx, userID, core.CollectionSubcategories)
	return nil
}

func (r *SQLiteRepository) DeleteSubcategory(ctx context.Context, userID, id string) error {
	if err := r.execOne(ctx, "delete subcategory", `DELETE FROM subcategories WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return err
	}
	r.publish(ctx, userID, core.CollectionSubcategories)
	return nil
}

// Entries

const upsertEntrySQL = `
	INSERT INTO entries (user_id, id, date, year_month, category_id, subcategory_id, account_id, description, value_cents, status)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (user_id, id) DO UPDATE SET
		date = excluded.date,
		year_month = excluded.year_month,
		category_id = excluded.category_id,
		subcategory_id = excluded.subcategory_id,
		account_id = excluded.account_id,
		description = excluded.description,
		value_cents = excluded.value_cents,
		status = excluded.status`

func entryArgs(userID string, e core.Entry) []any {
	return []any{userID, e.ID, e.Date, e.YearMonth, e.CategoryID, e.SubcategoryID,
		e.AccountID, e.Description, e.Value.Cents, string(e.Status)}
}

func (r *SQLiteRepository) ListEntries(ctx context.Context, userID string) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, year_month, category_id, subcategory_id, account_id, description, value_cents, status
		FROM entries WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		var e core.Entry
		if err := rows.Scan(&e.ID, &e.Date, &e.YearMonth, &e.CategoryID, &e.SubcategoryID,
			&e.AccountID, &e.Description, &e.Value.Cents, &e.Status); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpsertEntry(ctx context.Context, userID string, e core.Entry) error {
	if e.ID == "" {
		return core.ErrEmptyID
	}
	if _, err := r.db.ExecContext(ctx, upsertEntrySQL, entryArgs(userID, e)...); err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	r.publish(ctx, userID, core.CollectionEntries)
	return nil
}

// UpsertEntries writes the whole batch in one transaction.
func (r *SQLiteRepository) UpsertEntries(ctx context.Context, userID string, entries []core.Entry) error {
	for _, e := range entries {
		if e.ID == "" {
			return core.ErrEmptyID
		}
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertEntrySQL)
		if err != nil {
			return fmt.Errorf("prepare upsert entry: %w", err)
		}
		defer stmt.Close()
		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, entryArgs(userID, e)...); err != nil {
				return fmt.Errorf("upsert entry %s: %w", e.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "Entry batch committed", "component", "storage", "user_id", userID, "count", len(entries))
	r.publish(ctx, userID, core.CollectionEntries)
	return nil
}

func (r *SQLiteRepository) UpdateEntry(ctx context.Context, userID string, e core.Entry) error {
	err := r.execOne(ctx, "update entry", `
		UPDATE entries SET date = ?, year_month = ?, category_id = ?, subcategory_id = ?,
			account_id = ?, description = ?, value_cents = ?, status = ?
		WHERE user_id = ? AND id = ?`,
		e.Date, e.YearMonth, e.CategoryID, e.SubcategoryID, e.AccountID, e.Description,
		e.Value.Cents, string(e.Status), userID, e.ID)
	if err != nil {
		return err
	}
	r.publish(ctx, userID, core.CollectionEntries)
	return nil
}

func (r *SQLiteRepository) DeleteEntry(ctx context.Context, userID, id string) error {
	if err := r.execOne(ctx, "delete entry", `DELETE FROM entries WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return err
	}
	r.publish(ctx, userID, core.CollectionEntries)
	return nil
}

// DeleteEntries removes the listed entries in one transaction.
func (r *SQLiteRepository) DeleteEntries(ctx context.Context, userID string, ids []string) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			res, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE user_id = ? AND id = ?`, userID, id)
			if err != nil {
				return fmt.Errorf("delete entry %s: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("delete entry %s: %w", id, core.ErrNotFound)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.publish(ctx, userID, core.CollectionEntries)
	return nil
}

// Config

func (r *SQLiteRepository) ReadConfig(ctx context.Context, userID string) (core.ConfigPatch, error) {
	var (
		fromMs, toMs sql.NullInt64
		privacy      sql.NullBool
		name, theme  sql.NullString
		p            core.ConfigPatch
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT range_from_ms, range_to_ms, privacy, name, theme FROM user_config WHERE user_id = ?`, userID).
		Scan(&fromMs, &toMs, &privacy, &name, &theme)
	if errors.Is(err, sql.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read config: %w", err)
	}

	if fromMs.Valid && toMs.Valid {
		dr := core.RangeFromTimestamps(time.UnixMilli(fromMs.Int64), time.UnixMilli(toMs.Int64), r.loc)
		p.DateRange = &dr
	}
	if privacy.Valid {
		p.Privacy = &privacy.Bool
	}
	if name.Valid {
		p.Name = &name.String
	}
	if theme.Valid {
		t := core.Theme(theme.String).OrDefault()
		p.Theme = &t
	}
	return p, nil
}

// MergeConfig writes the set fields of p in one transaction.
func (r *SQLiteRepository) MergeConfig(ctx context.Context, userID string, p core.ConfigPatch) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO user_config (user_id) VALUES (?)`, userID); err != nil {
			return fmt.Errorf("create config: %w", err)
		}
		set := func(column string, value any) error {
			_, err := tx.ExecContext(ctx, `UPDATE user_config SET `+column+` WHERE user_id = ?`, value, userID)
			if err != nil {
				return fmt.Errorf("update config: %w", err)
			}
			return nil
		}
		if p.DateRange != nil {
			if p.DateRange.Complete() {
				from, to := p.DateRange.Timestamps(r.loc)
				if _, err := tx.ExecContext(ctx,
					`UPDATE user_config SET range_from_ms = ?, range_to_ms = ? WHERE user_id = ?`,
					from.UnixMilli(), to.UnixMilli(), userID); err != nil {
					return fmt.Errorf("update config range: %w", err)
				}
			} else if _, err := tx.ExecContext(ctx,
				`UPDATE user_config SET range_from_ms = NULL, range_to_ms = NULL WHERE user_id = ?`, userID); err != nil {
				return fmt.Errorf("clear config range: %w", err)
			}
		}
		if p.Privacy != nil {
			if err := set("privacy = ?", *p.Privacy); err != nil {
				return err
			}
		}
		if p.Name != nil {
			if err := set("name = ?", *p.Name); err != nil {
				return err
			}
		}
		if p.Theme != nil {
			if err := set("theme = ?", string(p.Theme.OrDefault())); err != nil {
				return err
			}
		}
		return nil
	})
}
