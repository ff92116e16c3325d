package opqueue

import (
	"context"
	"testing"
	"time"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()

	q, err := NewQueue(QueueConfig{Store: NewMemoryStore()})
	if err != nil {
		t.Fatalf("NewQueue() error = %v", err)
	}
	return q
}

func TestQueue_RoundTrip(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	attempt := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	op := Operation{
		ID:          "op-1",
		Context:     "instagram_publish",
		Payload:     map[string]any{"image_url": "https://cdn.example/p.jpg", "caption": "hi"},
		CreatedAt:   time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		RetryCount:  2,
		LastAttempt: &attempt,
		LastError:   "http status 503",
	}

	id, err := q.Enqueue(ctx, op)
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if id != "op-1" {
		t.Errorf("id = %q, want op-1", id)
	}

	pending, err := q.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}

	got := pending[0]
	if got.ID != op.ID || got.Context != op.Context {
		t.Errorf("identity = %q/%q, want %q/%q", got.ID, got.Context, op.ID, op.Context)
	}
	if !got.CreatedAt.Equal(op.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, op.CreatedAt)
	}
	if got.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", got.RetryCount)
	}
	if got.LastAttempt == nil || !got.LastAttempt.Equal(attempt) {
		t.Errorf("LastAttempt = %v, want %v", got.LastAttempt, attempt)
	}
	if got.LastError != "http status 503" {
		t.Errorf("LastError = %q", got.LastError)
	}
	if got.Payload["image_url"] != "https://cdn.example/p.jpg" {
		t.Errorf("Payload = %v", got.Payload)
	}
}

func TestQueue_NullableTimestampRoundTrip(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, Operation{Context: "shopify_get"})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	pending, err := q.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if pending[0].LastAttempt != nil {
		t.Errorf("LastAttempt = %v, want nil", pending[0].LastAttempt)
	}
	if pending[0].ID != id {
		t.Errorf("ID = %q, want generated %q", pending[0].ID, id)
	}
	if pending[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}
}

func TestQueue_EnqueueAssignsUniqueIDs(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	id1, _ := q.Enqueue(ctx, Operation{Context: "a"})
	id2, _ := q.Enqueue(ctx, Operation{Context: "b"})

	if id1 == "" || id2 == "" || id1 == id2 {
		t.Errorf("ids = %q, %q, want distinct non-empty", id1, id2)
	}
}

func TestQueue_Remove(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	id, _ := q.Enqueue(ctx, Operation{Context: "instagram_post"})
	if err := q.Remove(ctx, id); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	pending, _ := q.Pending(ctx)
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}

	if err := q.Remove(ctx, id); err == nil {
		t.Error("Remove() on missing id: want error")
	}
}

func TestQueue_Update(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	id, _ := q.Enqueue(ctx, Operation{Context: "instagram_post"})

	updated, err := q.Update(ctx, id, func(op *Operation) {
		op.LastError = "edited"
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated == nil || updated.LastError != "edited" {
		t.Fatalf("updated = %+v, want LastError=edited", updated)
	}

	missing, err := q.Update(ctx, "no-such-id", func(op *Operation) {})
	if err != nil {
		t.Fatalf("Update() on missing id error = %v", err)
	}
	if missing != nil {
		t.Errorf("updated = %+v, want nil for missing id", missing)
	}
}

func TestQueue_IncrementRetry(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	id, _ := q.Enqueue(ctx, Operation{Context: "instagram_post"})

	op, err := q.IncrementRetry(ctx, id, "http status 503")
	if err != nil {
		t.Fatalf("IncrementRetry() error = %v", err)
	}
	if op.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", op.RetryCount)
	}
	if op.LastAttempt == nil {
		t.Error("LastAttempt = nil, want set")
	}
	if op.LastError != "http status 503" {
		t.Errorf("LastError = %q", op.LastError)
	}

	op, _ = q.IncrementRetry(ctx, id, "timeout")
	if op.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", op.RetryCount)
	}
	if op.LastError != "timeout" {
		t.Errorf("LastError = %q, want timeout", op.LastError)
	}
}

func TestQueue_PendingSkipsCorruptRecords(t *testing.T) {
	store := NewMemoryStore()
	q, err := NewQueue(QueueConfig{Store: store})
	if err != nil {
		t.Fatalf("NewQueue() error = %v", err)
	}
	ctx := context.Background()

	q.Enqueue(ctx, Operation{ID: "good", Context: "instagram_post"})
	store.Set(ctx, "bad", []byte("not json"))

	pending, err := q.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "good" {
		t.Errorf("pending = %+v, want only the good record", pending)
	}
}

func TestMemoryStore_NotFound(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); err != ErrNotFound {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "missing"); err != ErrNotFound {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}
