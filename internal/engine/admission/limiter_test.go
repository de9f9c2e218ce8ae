package admission

import (
	"context"
	"testing"
	"time"
)

func TestTryAcquireDrainsCapacity(t *testing.T) {
	l := NewLimiter(2, 1, time.Hour)

	if !l.TryAcquire() {
		t.Fatal("expected first TryAcquire to succeed")
	}
	if !l.TryAcquire() {
		t.Fatal("expected second TryAcquire to succeed")
	}
	if l.TryAcquire() {
		t.Fatal("expected third TryAcquire to fail, bucket should be empty")
	}
}

func TestRefillRestoresTokens(t *testing.T) {
	l := NewLimiter(1, 1, 10*time.Millisecond)

	if !l.TryAcquire() {
		t.Fatal("expected first TryAcquire to succeed")
	}
	if l.TryAcquire() {
		t.Fatal("expected immediate re-acquire to fail")
	}

	time.Sleep(30 * time.Millisecond)

	if !l.TryAcquire() {
		t.Fatal("expected TryAcquire to succeed after refill")
	}
}

func TestAcquireBlocksUntilRefill(t *testing.T) {
	l := NewLimiter(1, 1, 20*time.Millisecond)
	if !l.TryAcquire() {
		t.Fatal("expected first TryAcquire to succeed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("expected Acquire to wait for a refill period")
	}
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	l := NewLimiter(0, 1, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Acquire(ctx); err == nil {
		t.Fatal("expected Acquire to return an error when the context deadline passes")
	}
}

func TestAvailableDoesNotConsume(t *testing.T) {
	l := NewLimiter(3, 1, time.Hour)

	if got := l.Available(); got != 3 {
		t.Errorf("Available() = %d, want 3", got)
	}
	if got := l.Available(); got != 3 {
		t.Errorf("Available() on second call = %d, want 3 (should not consume)", got)
	}
}
