package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("connection refused")

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	}, WithInitialDelay(time.Millisecond), WithMaxAttempts(5))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanent(t *testing.T) {
	cause := errors.New("bad input")
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(cause)
	}, WithInitialDelay(time.Millisecond))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, calls)
}

func TestDoRespectsRetryIf(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errTransient
	},
		WithInitialDelay(time.Millisecond),
		WithRetryIf(func(error) bool { return false }),
	)

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestDoReturnsLastErrorAfterAttempts(t *testing.T) {
	var retried []int
	err := Do(context.Background(), func(ctx context.Context) error {
		return errTransient
	},
		WithMaxAttempts(3),
		WithInitialDelay(time.Millisecond),
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			retried = append(retried, attempt)
		}),
	)

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithData(t *testing.T) {
	calls := 0
	got, err := DoWithData(context.Background(), New(WithInitialDelay(time.Millisecond)), func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errTransient
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
}
