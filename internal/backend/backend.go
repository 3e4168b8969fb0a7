// Package backend opens the store selected by configuration and wires the
// optional AMQP change notifier into it.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"painel/internal/amqp"
	"painel/internal/config"
	"painel/internal/store"
	"painel/internal/store/memory"
	"painel/internal/storage"
)

// Type names a storage backend.
type Type string

const (
	SQLite Type = config.BackendSQLite
	Memory Type = config.BackendMemory
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLite, Memory:
		return true
	default:
		return false
	}
}

// Store is a store that can forward change notifications.
type Store interface {
	store.Store
	SetNotifier(store.ChangeNotifier)
}

// Result holds the opened store and what must be closed with it.
type Result struct {
	Store Store
	Type  Type
	// AMQP is nil when notifications are disabled or the broker was
	// unreachable at startup.
	AMQP *amqp.Client
}

// Close releases the store and the AMQP connection.
func (r *Result) Close() error {
	var errs []error
	if r.AMQP != nil {
		errs = append(errs, r.AMQP.Close())
	}
	if r.Store != nil {
		errs = append(errs, r.Store.Close())
	}
	return errors.Join(errs...)
}

// Options are the backend settings taken from the application config.
type Options struct {
	Type         Type
	SQLiteDBPath string
	SeedDir      string
	Location     *time.Location

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// OptionsFromConfig converts the application config.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	if cfg == nil {
		return Options{}, fmt.Errorf("app config is nil")
	}
	t := Type(cfg.DataBackend)
	if !t.IsValid() {
		return Options{}, fmt.Errorf("invalid backend type in config: %s", cfg.DataBackend)
	}
	return Options{
		Type:         t,
		SQLiteDBPath: cfg.SQLiteDBPath,
		SeedDir:      cfg.SeedDir,
		Location:     cfg.Location(),
		AMQPURL:      cfg.AMQPURL,
		AMQPExchange: cfg.AMQPExchange,
		AMQPQueue:    cfg.AMQPQueue,
	}, nil
}

// Open creates the store. A broker that cannot be reached is logged and
// skipped; the store works without notifications.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		st  Store
		err error
	)
	switch opts.Type {
	case SQLite:
		st, err = storage.NewSQLiteRepository(opts.SQLiteDBPath, opts.Location)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", opts.SQLiteDBPath)
	case Memory:
		if opts.SeedDir == "" {
			st = memory.New(opts.Location, memory.DefaultSeed())
		} else {
			st, err = memory.NewFromDir(opts.SeedDir, opts.Location)
			if err != nil {
				return nil, fmt.Errorf("failed to load seed data: %w", err)
			}
		}
		logger.InfoContext(ctx, "Initialized memory backend", "seed_dir", opts.SeedDir)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", opts.Type)
	}

	res := &Result{Store: st, Type: opts.Type}
	if opts.AMQPURL == "" {
		return res, nil
	}
	client, err := amqp.NewClient(opts.AMQPURL, opts.AMQPExchange, opts.AMQPQueue)
	if err != nil {
		logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without notifications", "error", err)
		return res, nil
	}
	st.SetNotifier(client)
	res.AMQP = client
	logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", opts.AMQPExchange,
		"queue", opts.AMQPQueue)
	return res, nil
}
