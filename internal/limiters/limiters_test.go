package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCheckSendWithinBudget(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	l := NewSendCodeLimiter(rdb, SendCodeConfig{Enabled: true, MaxSends: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.CheckSend(ctx, "admin@example.com"); err != nil {
			t.Fatalf("send %d: unexpected error %v", i+1, err)
		}
	}
	if err := l.CheckSend(ctx, "admin@example.com"); !errors.Is(err, ErrSendRateLimited) {
		t.Fatalf("expected ErrSendRateLimited, got %v", err)
	}
}

func TestCheckSendWindowResets(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	l := NewSendCodeLimiter(rdb, SendCodeConfig{Enabled: true, MaxSends: 1, Window: time.Minute})
	ctx := context.Background()

	if err := l.CheckSend(ctx, "admin@example.com"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := l.CheckSend(ctx, "admin@example.com"); !errors.Is(err, ErrSendRateLimited) {
		t.Fatalf("expected ErrSendRateLimited, got %v", err)
	}

	mr.FastForward(time.Minute + time.Second)

	if err := l.CheckSend(ctx, "admin@example.com"); err != nil {
		t.Fatalf("expected fresh window, got %v", err)
	}
}

func TestCheckSendDisabled(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	l := NewSendCodeLimiter(rdb, SendCodeConfig{Enabled: false, MaxSends: 1, Window: time.Minute})
	for i := 0; i < 10; i++ {
		if err := l.CheckSend(context.Background(), "admin@example.com"); err != nil {
			t.Fatalf("disabled limiter must never reject, got %v", err)
		}
	}
}

func TestCheckSendPerDestination(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	l := NewSendCodeLimiter(rdb, SendCodeConfig{Enabled: true, MaxSends: 1, Window: time.Minute})
	ctx := context.Background()

	if err := l.CheckSend(ctx, "one@example.com"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := l.CheckSend(ctx, "two@example.com"); err != nil {
		t.Fatalf("expected independent budget per destination, got %v", err)
	}
}

func TestIsLocked(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	tests := []struct {
		name        string
		lockedUntil int64
		want        bool
	}{
		{"never locked", 0, false},
		{"lock in future", now.Unix() + 60, true},
		{"lock just expired", now.Unix(), false},
		{"lock in past", now.Unix() - 60, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLocked(tt.lockedUntil, now); got != tt.want {
				t.Fatalf("IsLocked(%d) = %v, want %v", tt.lockedUntil, got, tt.want)
			}
		})
	}
}

func TestRemaining(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	if got := Remaining(0, now); got != 0 {
		t.Fatalf("expected zero remaining when unlocked, got %v", got)
	}
	if got := Remaining(now.Unix()+90, now); got != 90*time.Second {
		t.Fatalf("expected 90s remaining, got %v", got)
	}
}
