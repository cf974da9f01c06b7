package camunda

import (
	"context"
	"fmt"
	"testing"
	"time"

	"application-workflow/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastBackoff = Backoff{Attempts: 3, Base: time.Millisecond, Max: 2 * time.Millisecond}

func TestRetry_RecoversFromTransientFailure(t *testing.T) {
	calls := 0
	err := retry(context.Background(), fastBackoff, "create-instance:candidate-assessment", func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("rpc error: code = Unavailable")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_GivesUp(t *testing.T) {
	calls := 0
	err := retry(context.Background(), fastBackoff, "op", func(context.Context) error {
		calls++
		return fmt.Errorf("context deadline exceeded")
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.True(t, errors.HasCode(err, "TIMEOUT_ERROR"))
}

func TestRetry_PermanentFailureIsNotRetried(t *testing.T) {
	calls := 0
	err := retry(context.Background(), fastBackoff, "op", func(context.Context) error {
		calls++
		return fmt.Errorf("NOT_FOUND: no process with id candidate-assessment")
	})
	assert.Equal(t, 1, calls)
	assert.True(t, errors.HasCode(err, "RESOURCE_NOT_FOUND"))
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry(ctx, Backoff{Attempts: 5, Base: time.Hour, Max: time.Hour}, "op", func(context.Context) error {
		return fmt.Errorf("connection refused")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassify_Default(t *testing.T) {
	err := classify(fmt.Errorf("INVALID_ARGUMENT: bad variables"), "op", 0)
	assert.True(t, errors.HasCode(err, "EXTERNAL_SERVICE_ERROR"))
}
