package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithExponentialBackoff_SucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("throttled")
		}
		return nil
	}, WithMaxRetries(5), WithInitialDelay(time.Millisecond))

	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestWithExponentialBackoff_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		calls++
		return errors.New("still broken")
	}, WithMaxRetries(2), WithInitialDelay(time.Millisecond))

	require.Error(t, err)
	require.Equal(t, 3, calls)
}

func TestWithExponentialBackoff_FatalStopsImmediately(t *testing.T) {
	t.Parallel()

	calls := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		calls++
		return Fatal(errors.New("access denied"))
	}, WithMaxRetries(5), WithInitialDelay(time.Millisecond))

	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestWithExponentialBackoff_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithExponentialBackoff(ctx, func() error {
		return errors.New("transient")
	}, WithMaxRetries(3), WithInitialDelay(time.Minute))

	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	require.False(t, IsFatal(errors.New("plain")))
	require.True(t, IsFatal(Fatal(errors.New("wrapped"))))
	require.Nil(t, Fatal(nil))
}
