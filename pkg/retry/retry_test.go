package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(retries int) Policy {
	return Policy{
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	if p.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", p.MaxRetries)
	}
	if p.InitialInterval != 500*time.Millisecond {
		t.Errorf("InitialInterval = %v, want 500ms", p.InitialInterval)
	}
	if p.Multiplier != 2.0 {
		t.Errorf("Multiplier = %f, want 2.0", p.Multiplier)
	}
}

func TestDo_SucceedsFirstTime(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("operation called %d times, want 1", calls)
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(5), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("operation called %d times, want 3", calls)
	}
}

func TestDo_AttemptsExhausted(t *testing.T) {
	boom := errors.New("broker unavailable")
	calls := 0
	err := Do(context.Background(), fastPolicy(2), func(ctx context.Context) error {
		calls++
		return boom
	})

	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Errorf("Do() error = %v, want ErrAttemptsExhausted", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Do() error = %v, want it to wrap the last failure", err)
	}
	if calls != 3 {
		t.Errorf("operation called %d times, want 3", calls)
	}
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	invalid := errors.New("invalid credentials")
	calls := 0
	err := Do(context.Background(), fastPolicy(5), func(ctx context.Context) error {
		calls++
		return Permanent(invalid)
	})

	if !errors.Is(err, invalid) {
		t.Errorf("Do() error = %v, want %v", err, invalid)
	}
	if IsPermanent(err) {
		t.Error("Do() should unwrap the permanent marker")
	}
	if calls != 1 {
		t.Errorf("operation called %d times, want 1", calls)
	}
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Constant(10, 50*time.Millisecond), func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("timeout")
	})

	if !errors.Is(err, ErrContextCanceled) {
		t.Errorf("Do() error = %v, want ErrContextCanceled", err)
	}
	if calls != 1 {
		t.Errorf("operation called %d times, want 1", calls)
	}
}

func TestDoNotify_CallsHookBeforeEachRetry(t *testing.T) {
	var attempts []int
	_ = DoNotify(context.Background(), fastPolicy(2), func(ctx context.Context) error {
		return errors.New("fail")
	}, func(attempt int, err error, wait time.Duration) {
		attempts = append(attempts, attempt)
		if wait <= 0 {
			t.Errorf("wait = %v, want positive", wait)
		}
	})

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("notify attempts = %v, want [1 2]", attempts)
	}
}

func TestPolicy_Interval(t *testing.T) {
	p := Policy{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{10, time.Second},
	}

	for _, tt := range tests {
		if got := p.Interval(tt.attempt); got != tt.want {
			t.Errorf("Interval(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestPolicy_IntervalJitterStaysInRange(t *testing.T) {
	p := Policy{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      1.0,
		Jitter:          0.2,
	}

	for i := 0; i < 100; i++ {
		got := p.Interval(0)
		if got < 80*time.Millisecond || got > 120*time.Millisecond {
			t.Fatalf("Interval(0) = %v, want within 80ms..120ms", got)
		}
	}
}

func TestConstant(t *testing.T) {
	p := Constant(4, 250*time.Millisecond)

	for attempt := 0; attempt < 4; attempt++ {
		if got := p.Interval(attempt); got != 250*time.Millisecond {
			t.Errorf("Interval(%d) = %v, want 250ms", attempt, got)
		}
	}
}

func TestPermanent_Nil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}
