package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"painel/internal/amqp"
	"painel/internal/core"
	"painel/internal/report"
	"painel/internal/services"
	"painel/internal/store/memory"
)

var testNow = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

type exportCall struct {
	userID string
	report *report.Report
}

type fakeExporter struct {
	mu    sync.Mutex
	calls []exportCall
	fail  map[string]error
}

func (f *fakeExporter) Export(_ context.Context, userID string, r *report.Report) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[userID]; err != nil {
		return "", err
	}
	f.calls = append(f.calls, exportCall{userID: userID, report: r})
	return "Relatório " + userID + "!A1", nil
}

func (f *fakeExporter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newWorker(t *testing.T, exp *fakeExporter, users ...string) (*ExportWorker, *memory.Store) {
	t.Helper()
	st := memory.New(time.UTC, memory.DefaultSeed())
	sessions := services.NewSessionManager(st, func() time.Time { return testNow }, nil)
	t.Cleanup(sessions.Close)
	return NewExportWorker(sessions, exp, users, func() time.Time { return testNow }), st
}

func TestExportUser(t *testing.T) {
	exp := &fakeExporter{}
	w, st := newWorker(t, exp)
	ctx := context.Background()

	err := st.UpsertEntry(ctx, "u1", core.Entry{
		ID: "e1", Date: "2024-05-10", YearMonth: "2024-05",
		CategoryID: "salario", AccountID: "carteira",
		Description: "Salário", Value: core.Cents(500000), Status: core.StatusPaid,
	})
	if err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	rng, err := w.ExportUser(ctx, "u1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if rng != "Relatório u1!A1" {
		t.Errorf("range = %q", rng)
	}
	if exp.count() != 1 {
		t.Fatalf("calls = %d", exp.count())
	}
	r := exp.calls[0].report
	if len(r.Rows) != 1 || r.Rows[0].Value.Cents != 500000 {
		t.Fatalf("rows = %+v", r.Rows)
	}
	if r.Period != "01/05/2024 - 20/05/2024" {
		t.Errorf("period = %q", r.Period)
	}
	if last, ok := w.LastExport("u1"); !ok || !last.Equal(testNow) {
		t.Errorf("last export = %v, %v", last, ok)
	}
}

func TestHandleChangeMessageReloadsSession(t *testing.T) {
	exp := &fakeExporter{}
	w, st := newWorker(t, exp)
	ctx := context.Background()

	if _, err := w.ExportUser(ctx, "u1"); err != nil {
		t.Fatalf("first export: %v", err)
	}
	if err := st.UpsertEntry(ctx, "u1", core.Entry{
		ID: "e1", Date: "2024-05-11", CategoryID: "moradia", AccountID: "carteira",
		Value: core.Cents(120000), Status: core.StatusPaid,
	}); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	if err := w.HandleChangeMessage(ctx, amqp.NewChangeMessage("u1", core.CollectionEntries)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if exp.count() != 2 {
		t.Fatalf("calls = %d", exp.count())
	}
	if rows := exp.calls[1].report.Rows; len(rows) != 1 || rows[0].Value.Cents != -120000 {
		t.Fatalf("rows after change = %+v", rows)
	}
}

func TestHandleChangeMessageReturnsExportError(t *testing.T) {
	boom := errors.New("sheets unavailable")
	w, _ := newWorker(t, &fakeExporter{fail: map[string]error{"u1": boom}})
	err := w.HandleChangeMessage(context.Background(), amqp.NewChangeMessage("u1", core.CollectionEntries))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := w.LastExport("u1"); ok {
		t.Fatal("failed export must not be recorded")
	}
}

func TestExportAllContinuesPastFailures(t *testing.T) {
	boom := errors.New("quota exceeded")
	exp := &fakeExporter{fail: map[string]error{"u2": boom}}
	w, _ := newWorker(t, exp, "u1", "u2", "u3")

	err := w.ExportAll(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if exp.count() != 2 {
		t.Fatalf("exported %d users, want 2", exp.count())
	}
}

func TestRunPeriodicStopsWithContext(t *testing.T) {
	exp := &fakeExporter{}
	w, _ := newWorker(t, exp, "u1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.RunPeriodic(ctx, 10*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for exp.count() < 2 {
		select {
		case <-deadline:
			t.Fatal("periodic export did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
