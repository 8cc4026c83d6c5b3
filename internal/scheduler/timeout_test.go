package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/specialistvlad/dagwatch/internal/workflowid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTimeout_SlowQueryIsTransient(t *testing.T) {
	slow := AdapterFunc(func(ctx context.Context, id workflowid.ID) (*Result, error) {
		<-ctx.Done()
		return nil, errors.New("killed")
	})

	_, err := WithTimeout(slow, 10*time.Millisecond).Query(context.Background(), workflowid.New(1, 0))

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.True(t, errors.Is(err, ErrTransientUnavailable))
}

func TestWithTimeout_PassesThrough(t *testing.T) {
	fast := AdapterFunc(func(ctx context.Context, id workflowid.ID) (*Result, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return &Result{}, nil
	})

	res, err := WithTimeout(fast, time.Second).Query(context.Background(), workflowid.New(1, 0))
	require.NoError(t, err)
	assert.NotNil(t, res)
}

func TestWithTimeout_CallerCancellationIsNotTransient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocked := AdapterFunc(func(ctx context.Context, id workflowid.ID) (*Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := WithTimeout(blocked, time.Second).Query(ctx, workflowid.New(1, 0))
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}

func TestWithTimeout_Disabled(t *testing.T) {
	var a Adapter = AdapterFunc(func(ctx context.Context, id workflowid.ID) (*Result, error) {
		_, hasDeadline := ctx.Deadline()
		assert.False(t, hasDeadline)
		return &Result{}, nil
	})
	_, err := WithTimeout(a, 0).Query(context.Background(), workflowid.New(1, 0))
	require.NoError(t, err)
}
