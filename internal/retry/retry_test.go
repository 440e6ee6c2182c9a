package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffWaitDuration(t *testing.T) {
	tests := []struct {
		name    string
		backoff *Backoff
		attempt int
		want    time.Duration
	}{
		{name: "nil backoff", backoff: nil, attempt: 3, want: 0},
		{name: "first attempt", backoff: NewBackoff(100*time.Millisecond, time.Second, false), attempt: 0, want: 100 * time.Millisecond},
		{name: "doubles", backoff: NewBackoff(100*time.Millisecond, time.Second, false), attempt: 2, want: 400 * time.Millisecond},
		{name: "capped", backoff: NewBackoff(100*time.Millisecond, time.Second, false), attempt: 10, want: time.Second},
		{name: "uncapped overflow", backoff: NewBackoff(time.Second, 0, false), attempt: 200, want: time.Second << 33},
		{name: "base above cap", backoff: NewBackoff(5*time.Second, time.Second, false), attempt: 0, want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.backoff.WaitDuration(tt.attempt))
		})
	}
}

func TestBackoffJitterWithinBounds(t *testing.T) {
	b := NewBackoff(10*time.Millisecond, 80*time.Millisecond, true)
	for attempt := 0; attempt < 10; attempt++ {
		wait := b.WaitDuration(attempt)
		assert.GreaterOrEqual(t, wait, time.Duration(0))
		assert.LessOrEqual(t, wait, 80*time.Millisecond)
	}
}

func TestDo(t *testing.T) {
	transient := errors.New("transient")
	fatal := errors.New("fatal")

	tests := []struct {
		name      string
		failures  []error
		policy    Policy
		wantErr   error
		wantCalls int
	}{
		{
			name:      "success first try",
			policy:    Policy{MaxRetries: 3},
			wantCalls: 1,
		},
		{
			name:      "recovers after retries",
			failures:  []error{transient, transient},
			policy:    Policy{MaxRetries: 3},
			wantCalls: 3,
		},
		{
			name:      "gives up",
			failures:  []error{transient, transient, transient, transient, transient},
			policy:    Policy{MaxRetries: 2},
			wantErr:   transient,
			wantCalls: 3,
		},
		{
			name:     "not retriable",
			failures: []error{fatal},
			policy: Policy{MaxRetries: 5, ShouldRetry: func(err error) bool {
				return !errors.Is(err, fatal)
			}},
			wantErr:   fatal,
			wantCalls: 1,
		},
		{
			name:      "permanent",
			failures:  []error{Permanent(fatal)},
			policy:    Policy{MaxRetries: 5},
			wantErr:   fatal,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			retried := 0
			tt.policy.OnRetry = func(err error, attempt int, wait time.Duration) { retried++ }

			err := Do(context.Background(), tt.policy, func(ctx context.Context) error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})

			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantCalls-1, retried)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{MaxRetries: 5, Backoff: NewBackoff(time.Hour, 0, false)}, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
