package composables_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sentencing-etl/pkg/composables"
)

func TestUseTx_NoPool(t *testing.T) {
	_, err := composables.UseTx(context.Background())
	require.ErrorIs(t, err, composables.ErrNoPool)
}

func TestInTx_NoPool(t *testing.T) {
	called := false
	err := composables.InTx(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, composables.ErrNoPool)
	require.False(t, called)

	_, err = composables.InTxResult(context.Background(), func(context.Context) (int, error) {
		return 1, errors.New("unreachable")
	})
	require.ErrorIs(t, err, composables.ErrNoPool)
}

func TestLoggerAndRequestID(t *testing.T) {
	ctx := context.Background()
	require.NotNil(t, composables.UseLogger(ctx))
	_, ok := composables.UseRequestID(ctx)
	require.False(t, ok)

	entry := logrus.New().WithField("request-id", "r1")
	ctx = composables.WithLogger(composables.WithRequestID(ctx, "r1"), entry)
	require.Same(t, entry, composables.UseLogger(ctx))
	id, ok := composables.UseRequestID(ctx)
	require.True(t, ok)
	require.Equal(t, "r1", id)

	_, ok = composables.UseRequestID(composables.WithRequestID(ctx, ""))
	require.False(t, ok)
}
