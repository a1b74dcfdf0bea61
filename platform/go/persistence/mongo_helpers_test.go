package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tcmongodb "github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// startMongoURI spins a throwaway mongod for one test and returns its base
// connection URI. Tests are skipped in short mode or when no container
// runtime is available.
func startMongoURI(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := tcmongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Skipf("skipping: could not start mongodb container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	return uri
}

func newMongoRegistry(t *testing.T) *Registry {
	t.Helper()

	r, err := NewRegistry(RegistryConfig{BaseURI: startMongoURI(t)})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = r.CloseAll(context.Background())
	})
	return r
}
