package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggerContextRoundTrip(t *testing.T) {
	t.Parallel()

	fallback := zap.NewNop()
	attached := zap.NewNop().With(zap.String("component", "test"))

	ctx := WithLogger(context.Background(), attached)
	require.Same(t, attached, FromContext(ctx, fallback))
}

func TestFromContextFallsBack(t *testing.T) {
	t.Parallel()

	fallback := zap.NewNop()
	require.Same(t, fallback, FromContext(context.Background(), fallback))
}
