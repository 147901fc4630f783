package platform

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// recordSleeps replaces sleep with a recorder that returns immediately.
func recordSleeps(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	orig := sleep
	sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	t.Cleanup(func() { sleep = orig })
	return &waits
}

type floodError struct {
	wait time.Duration
	temp bool
}

func (e floodError) Error() string             { return fmt.Sprintf("flood, retry after %s", e.wait) }
func (e floodError) RetryAfter() time.Duration { return e.wait }
func (e floodError) Temporary() bool           { return e.temp }

func TestRetry_SuccessFirstAttempt(t *testing.T) {
	waits := recordSleeps(t)
	calls := 0
	err := Retry(context.Background(), 3, time.Second, func() error {
		calls++
		return nil
	})
	if err != nil || calls != 1 || len(*waits) != 0 {
		t.Errorf("err = %v, calls = %d, waits = %v", err, calls, *waits)
	}
}

func TestRetry_ExponentialBackoff(t *testing.T) {
	waits := recordSleeps(t)
	calls := 0
	err := Retry(context.Background(), 4, 10*time.Millisecond, func() error {
		calls++
		if calls < 4 {
			return errors.New("temporary")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}
	if fmt.Sprint(*waits) != fmt.Sprint(want) {
		t.Errorf("waits = %v, want %v", *waits, want)
	}
}

func TestRetry_AllAttemptsFail(t *testing.T) {
	recordSleeps(t)
	sentinel := errors.New("persistent")
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want sentinel", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_HonorsRetryAfter(t *testing.T) {
	waits := recordSleeps(t)
	calls := 0
	err := Retry(context.Background(), 2, time.Millisecond, func() error {
		calls++
		if calls == 1 {
			return fmt.Errorf("send: %w", floodError{wait: 7 * time.Second, temp: true})
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if len(*waits) != 1 || (*waits)[0] != 7*time.Second {
		t.Errorf("waits = %v, want [7s]", *waits)
	}
}

func TestRetry_CapsDelay(t *testing.T) {
	waits := recordSleeps(t)
	_ = Retry(context.Background(), 2, time.Millisecond, func() error {
		return floodError{wait: time.Hour, temp: true}
	})
	if len(*waits) != 1 || (*waits)[0] != MaxDelay {
		t.Errorf("waits = %v, want [%s]", *waits, MaxDelay)
	}
}

func TestRetry_PermanentErrorStops(t *testing.T) {
	recordSleeps(t)
	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return floodError{temp: false}
	})
	if err == nil || calls != 1 {
		t.Errorf("err = %v, calls = %d, want 1 call", err, calls)
	}
}

func TestRetry_ContextErrorStops(t *testing.T) {
	recordSleeps(t)
	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return fmt.Errorf("poll: %w", context.DeadlineExceeded)
	})
	if !errors.Is(err, context.DeadlineExceeded) || calls != 1 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}

func TestRetry_CancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, time.Hour, func() error {
		calls++
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_ZeroAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 0, time.Millisecond, func() error {
		calls++
		return errors.New("not called")
	})
	if err != nil || calls != 0 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}
