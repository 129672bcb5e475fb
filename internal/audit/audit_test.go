package audit

import (
	"context"
	"testing"
	"time"

	"billcast/internal/db"
	"billcast/internal/migrate"
)

func newWriter(t *testing.T) Writer {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	return Writer{DB: conn, Now: func() time.Time { return now }}
}

func TestAppendAndTail(t *testing.T) {
	w := newWriter(t)
	ctx := context.Background()

	if err := w.Append(ctx, TypeComputed, "PL_1_2024", Payload{"score": 72.0}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Append(ctx, TypeCacheHit, "PL_1_2024", nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Append(ctx, TypeComputed, "PL_2_2024", nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	all, err := w.Tail(ctx, Filter{})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("events = %d, want 3", len(all))
	}
	if all[0].Type != TypeComputed || all[0].BillKey != "PL_2_2024" {
		t.Errorf("newest first violated: %+v", all[0])
	}
}

func TestTailFilters(t *testing.T) {
	w := newWriter(t)
	ctx := context.Background()
	_ = w.Append(ctx, TypeComputed, "PL_1_2024", Payload{"score": 50.0})
	_ = w.Append(ctx, TypeCacheHit, "PL_1_2024", nil)
	_ = w.Append(ctx, TypeComputed, "PL_2_2024", nil)

	byType, err := w.Tail(ctx, Filter{Type: TypeComputed})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(byType) != 2 {
		t.Errorf("by type = %d, want 2", len(byType))
	}

	byBill, err := w.Tail(ctx, Filter{BillKey: "PL_1_2024"})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(byBill) != 2 {
		t.Errorf("by bill = %d, want 2", len(byBill))
	}

	both, err := w.Tail(ctx, Filter{Type: TypeComputed, BillKey: "PL_1_2024"})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(both) != 1 {
		t.Fatalf("combined = %d, want 1", len(both))
	}
	if got := both[0].Payload["score"]; got != 50.0 {
		t.Errorf("payload score = %v, want 50", got)
	}
}

func TestTailLimit(t *testing.T) {
	w := newWriter(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = w.Append(ctx, TypeComputed, "PL_1_2024", nil)
	}
	got, err := w.Tail(ctx, Filter{Limit: 2})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
}
