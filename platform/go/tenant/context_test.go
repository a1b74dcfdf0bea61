package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpaceContextRoundTrip(t *testing.T) {
	t.Parallel()

	space := Space{Code: "nps", DisplayCode: "NPS", DatabaseName: "school_nps"}

	ctx := WithSpace(context.Background(), space)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, space, got)
}

func TestFromContextWithoutSpace(t *testing.T) {
	t.Parallel()

	_, ok := FromContext(context.Background())
	require.False(t, ok)
}
