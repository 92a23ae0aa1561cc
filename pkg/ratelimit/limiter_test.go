package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllow_DrainsBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("Allow() = false on request %d, burst is 3", i+1)
		}
	}
	if rl.Allow() {
		t.Error("Allow() = true with empty bucket")
	}
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	if rl.rate != 10 || rl.burst != 20 {
		t.Errorf("defaults = %v/%v, want 10/20", rl.rate, rl.burst)
	}

	// burst не может быть меньше темпа
	rl = NewRateLimiter(10, 5)
	if rl.burst != 10 {
		t.Errorf("burst = %v, want clamped to rate 10", rl.burst)
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	rl := NewRateLimiter(0.1, 1)
	if !rl.Allow() {
		t.Fatal("first token should be available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Следующий токен появится через ~10 секунд, контекст быстрее
	if err := rl.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}
}

func TestWait_RefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(100, 1)
	if !rl.Allow() {
		t.Fatal("first token should be available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// При 100 req/sec токен вернется за ~10ms
	if err := rl.Wait(ctx); err != nil {
		t.Errorf("Wait() error = %v, want nil after refill", err)
	}
}
