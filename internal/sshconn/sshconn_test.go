package sshconn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_BoundDefaultsToDefaultTimeout(t *testing.T) {
	ctx, cancel := Params{}.Bound(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(DefaultTimeout), deadline, time.Second)
}

func TestCause(t *testing.T) {
	eof := errors.New("EOF")

	t.Run("live context keeps the error", func(t *testing.T) {
		assert.Equal(t, eof, Cause(context.Background(), eof))
	})

	t.Run("deadline becomes ErrTimeout", func(t *testing.T) {
		ctx, cancel := Params{Timeout: time.Millisecond}.Bound(context.Background())
		defer cancel()
		<-ctx.Done()

		err := Cause(ctx, eof)

		assert.ErrorIs(t, err, ErrTimeout)
		assert.Contains(t, err.Error(), "EOF")
	})

	t.Run("cancellation is reported as such", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, Cause(ctx, eof), context.Canceled)
	})
}
