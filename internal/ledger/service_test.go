package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"expensed/internal/cache"
	"expensed/internal/core"
	"expensed/internal/storage"
)

// testNow is the fixed clock for ledger tests: a Wednesday.
var testNow = time.Date(2025, 3, 12, 14, 30, 0, 0, time.Local)

func newTestService(t *testing.T) *Service {
	t.Helper()

	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	svc := NewService(repo, nil, cache.NewLRUCache[any](64, time.Minute))
	svc.now = func() time.Time { return testNow }
	return svc
}

func mustAdd(t *testing.T, svc *Service, userID, category string, amount float64, date, description string) string {
	t.Helper()
	id, err := svc.Add(context.Background(), userID, category, amount, date, description)
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}
	return id
}

func TestAddParsesDate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id := mustAdd(t, svc, "u1", "Food", 12.5, "2025-03-10", "lunch")

	got, err := svc.Get(ctx, "u1", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	if !got.Date.Equal(want) {
		t.Errorf("date = %v, want %v", got.Date, want)
	}
}

func TestAddInvalidDate(t *testing.T) {
	svc := newTestService(t)

	for _, date := range []string{"10-03-2025", "2025/03/10", "not a date", ""} {
		_, err := svc.Add(context.Background(), "u1", "Food", 10, date, "x")
		if !errors.Is(err, core.ErrInvalidDate) {
			t.Errorf("Add with date %q: got %v, want ErrInvalidDate", date, err)
		}
	}
}

func TestUpdateSemantics(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id := mustAdd(t, svc, "u1", "Food", 10, "2025-03-10", "lunch")

	// Empty update is a no-op success.
	updated, err := svc.Update(ctx, "u1", id, storage.ExpenseUpdate{})
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if updated {
		t.Error("empty update reported a change")
	}

	amount := 17.0
	updated, err = svc.Update(ctx, "u1", id, storage.ExpenseUpdate{Amount: &amount})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated {
		t.Error("update reported no change")
	}

	// Unknown id fails with not found.
	_, err = svc.Update(ctx, "u1", "missing", storage.ExpenseUpdate{Amount: &amount})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestDeleteNotFound(t *testing.T) {
	svc := newTestService(t)

	err := svc.Delete(context.Background(), "u1", "missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestDuplicateDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id := mustAdd(t, svc, "u1", "Food", 10, "2025-01-05", "team lunch")

	newID, err := svc.Duplicate(ctx, "u1", id, "", nil)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if newID == id {
		t.Error("duplicate returned the original id")
	}

	dup, err := svc.Get(ctx, "u1", newID)
	if err != nil {
		t.Fatalf("get dup: %v", err)
	}
	if dup.Category != "Food" || dup.Amount != 10 {
		t.Errorf("dup = %q/%v, want Food/10", dup.Category, dup.Amount)
	}
	if dup.Description != "team lunch (duplicate)" {
		t.Errorf("description = %q, want suffix marker", dup.Description)
	}
	// Date defaults to the current moment, not the original date.
	if !dup.Date.Equal(testNow) {
		t.Errorf("date = %v, want %v", dup.Date, testNow)
	}
}

func TestDuplicateOverrides(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id := mustAdd(t, svc, "u1", "Food", 10, "2025-01-05", "team lunch")

	amount := 25.0
	newID, err := svc.Duplicate(ctx, "u1", id, "2025-02-01", &amount)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}

	dup, err := svc.Get(ctx, "u1", newID)
	if err != nil {
		t.Fatalf("get dup: %v", err)
	}
	if dup.Amount != 25 {
		t.Errorf("amount = %v, want 25", dup.Amount)
	}
	want := time.Date(2025, 2, 1, 0, 0, 0, 0, time.Local)
	if !dup.Date.Equal(want) {
		t.Errorf("date = %v, want %v", dup.Date, want)
	}
}

func TestDuplicateNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Duplicate(context.Background(), "u1", "missing", "", nil)
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestQuickAddRecordsAtNow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	parsed, id, err := svc.QuickAdd(ctx, "u1", "uber to airport 25.50")
	if err != nil {
		t.Fatalf("quick add: %v", err)
	}
	if parsed.Category != "Transport" || parsed.Amount != 25.50 {
		t.Errorf("parsed = %q/%v, want Transport/25.5", parsed.Category, parsed.Amount)
	}

	got, err := svc.Get(ctx, "u1", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Date.Equal(testNow) {
		t.Errorf("date = %v, want %v", got.Date, testNow)
	}
}

func TestWriteInvalidatesCachedReports(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	mustAdd(t, svc, "u1", "Food", 10, "2025-03-10", "lunch")

	before, err := svc.Summary(ctx, "u1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if before.TotalAmount != 10 {
		t.Fatalf("total = %v, want 10", before.TotalAmount)
	}

	mustAdd(t, svc, "u1", "Food", 5, "2025-03-11", "coffee")

	after, err := svc.Summary(ctx, "u1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if after.TotalAmount != 15 {
		t.Errorf("total after write = %v, want 15", after.TotalAmount)
	}
}
