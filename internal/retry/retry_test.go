package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(retries int) Config {
	return Config{
		MaxRetries:     retries,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDo_Success(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(3), nil, func(ctx context.Context) error {
		attempts++
		return nil
	})
	if err != nil {
		t.Errorf("Do() returned error = %v, want nil", err)
	}
	if attempts != 1 {
		t.Errorf("Do() made %d attempts, want 1", attempts)
	}
}

func TestDo_ClassifierStopsRetries(t *testing.T) {
	attempts := 0
	notFound := errors.New("not found")
	classify := func(err error) bool { return !errors.Is(err, notFound) }

	err := Do(context.Background(), fastConfig(3), classify, func(ctx context.Context) error {
		attempts++
		return notFound
	})
	if !errors.Is(err, notFound) {
		t.Errorf("Do() returned error = %v, want %v", err, notFound)
	}
	if attempts != 1 {
		t.Errorf("Do() made %d attempts, want 1", attempts)
	}
}

func TestDo_PermanentUnwrapped(t *testing.T) {
	attempts := 0
	base := errors.New("bad request")

	err := Do(context.Background(), fastConfig(3), nil, func(ctx context.Context) error {
		attempts++
		return Permanent(base)
	})
	if err != base {
		t.Errorf("Do() returned error = %v, want the unwrapped permanent error", err)
	}
	if attempts != 1 {
		t.Errorf("Do() made %d attempts, want 1", attempts)
	}
}

func TestDo_RetryThenSucceed(t *testing.T) {
	attempts := 0
	var notified []int
	cfg := fastConfig(5)
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		notified = append(notified, attempt)
	}

	err := Do(context.Background(), cfg, nil, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	if err != nil {
		t.Errorf("Do() returned error = %v, want nil", err)
	}
	if attempts != 3 {
		t.Errorf("Do() made %d attempts, want 3", attempts)
	}
	if len(notified) != 2 || notified[0] != 1 || notified[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", notified)
	}
}

func TestDo_Exhausted(t *testing.T) {
	attempts := 0
	tempErr := errors.New("temporary")

	err := Do(context.Background(), fastConfig(2), nil, func(ctx context.Context) error {
		attempts++
		return tempErr
	})

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Do() error = %v, want *ExhaustedError", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("ExhaustedError.Attempts = %d, want 3", exhausted.Attempts)
	}
	if !errors.Is(err, tempErr) {
		t.Error("ExhaustedError should unwrap to the last error")
	}
	if attempts != 3 {
		t.Errorf("Do() made %d attempts, want 3", attempts)
	}
}

func TestDo_ZeroRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(0), nil, func(ctx context.Context) error {
		attempts++
		return errors.New("temporary")
	})
	if err == nil {
		t.Error("Do() returned nil error, want error")
	}
	if attempts != 1 {
		t.Errorf("Do() made %d attempts, want 1", attempts)
	}
}

func TestDo_ContextCanceled(t *testing.T) {
	cfg := Config{
		MaxRetries:     5,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2.0,
	}
	ctx, cancel := context.WithCancel(context.Background())

	err := Do(ctx, cfg, nil, func(ctx context.Context) error {
		cancel()
		return errors.New("temporary")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() returned error = %v, want context.Canceled", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"context canceled", context.Canceled, false},
		{"context deadline exceeded", context.DeadlineExceeded, false},
		{"permanent", Permanent(errors.New("x")), false},
		{"generic error", errors.New("generic"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestJitterBounds(t *testing.T) {
	d := 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		j := jitter(d, 0.2)
		if j < -20*time.Millisecond || j > 20*time.Millisecond {
			t.Fatalf("jitter() = %v, want within +/-20ms", j)
		}
	}
	if jitter(d, 0) != 0 {
		t.Error("jitter() with zero fraction should be 0")
	}
}
