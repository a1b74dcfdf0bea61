package persistence

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/opencampus-io/campus-saas/platform/go/logging"
)

type fakeClient struct {
	mu            sync.Mutex
	base          *mongo.Client
	pingErr       error
	disconnectErr error
	disconnected  bool
}

func (c *fakeClient) Ping(ctx context.Context, rp *readpref.ReadPref) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pingErr
}

func (c *fakeClient) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return c.disconnectErr
}

func (c *fakeClient) Database(name string, opts ...*options.DatabaseOptions) *mongo.Database {
	if c.base == nil {
		return nil
	}
	return c.base.Database(name, opts...)
}

func (c *fakeClient) isDisconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

func newTestRegistry(t *testing.T, dial dialFunc) *Registry {
	t.Helper()

	r, err := NewRegistry(RegistryConfig{BaseURI: "mongodb://localhost:27017"})
	require.NoError(t, err)
	r.dial = dial
	return r
}

func TestGetReusesConnection(t *testing.T) {
	t.Parallel()

	var dials atomic.Int64
	r := newTestRegistry(t, func(ctx context.Context, uri string) (client, error) {
		dials.Add(1)
		return &fakeClient{}, nil
	})

	ctx := context.Background()
	first, err := r.Get(ctx, "NPS")
	require.NoError(t, err)

	second, err := r.Get(ctx, "NPS")
	require.NoError(t, err)

	require.Same(t, first, second)
	require.EqualValues(t, 1, dials.Load())

	// Same school under a differently cased code hits the same connection.
	third, err := r.Get(ctx, "nps")
	require.NoError(t, err)
	require.Same(t, first, third)
	require.EqualValues(t, 1, dials.Load())
}

func TestConcurrentFirstAccessDialsOnce(t *testing.T) {
	t.Parallel()

	var dials atomic.Int64
	r := newTestRegistry(t, func(ctx context.Context, uri string) (client, error) {
		dials.Add(1)
		return &fakeClient{}, nil
	})

	ctx := context.Background()
	const callers = 64

	handles := make([]*Handle, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := r.Get(ctx, "NPS")
			require.NoError(t, err)
			handles[i] = h
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, dials.Load())
	for i := 1; i < callers; i++ {
		require.Same(t, handles[0], handles[i])
	}
}

func TestFailedDialIsNotCached(t *testing.T) {
	t.Parallel()

	var dials atomic.Int64
	boom := errors.New("no route to host")
	r := newTestRegistry(t, func(ctx context.Context, uri string) (client, error) {
		if dials.Add(1) == 1 {
			return nil, boom
		}
		return &fakeClient{}, nil
	})

	ctx := context.Background()
	_, err := r.Get(ctx, "NPS")
	require.Error(t, err)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, "NPS", connErr.Code)
	require.Equal(t, "school_nps", connErr.Database)
	require.ErrorIs(t, err, boom)

	// The failure was not cached; the next access dials again and succeeds.
	h, err := r.Get(ctx, "NPS")
	require.NoError(t, err)
	require.NotNil(t, h)
	require.EqualValues(t, 2, dials.Load())
}

func TestFailedPingDisconnectsAndSurfaces(t *testing.T) {
	t.Parallel()

	notReady := &fakeClient{pingErr: errors.New("server selection timeout")}
	r := newTestRegistry(t, func(ctx context.Context, uri string) (client, error) {
		return notReady, nil
	})

	_, err := r.Get(context.Background(), "NPS")
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.True(t, notReady.isDisconnected())
}

func TestCloseIsIdempotentAndForcesFreshDial(t *testing.T) {
	t.Parallel()

	var clients []*fakeClient
	r := newTestRegistry(t, func(ctx context.Context, uri string) (client, error) {
		c := &fakeClient{}
		clients = append(clients, c)
		return c, nil
	})

	ctx := context.Background()
	first, err := r.Get(ctx, "NPS")
	require.NoError(t, err)

	require.NoError(t, r.Close(ctx, "NPS"))
	require.True(t, clients[0].isDisconnected())

	// Closing a school with no live connection is a no-op.
	require.NoError(t, r.Close(ctx, "NPS"))

	second, err := r.Get(ctx, "NPS")
	require.NoError(t, err)
	require.NotSame(t, first, second)
	require.Len(t, clients, 2)
}

func TestCloseAllCollectsFailures(t *testing.T) {
	t.Parallel()

	byURI := map[string]*fakeClient{}
	r := newTestRegistry(t, func(ctx context.Context, uri string) (client, error) {
		c := &fakeClient{}
		byURI[uri] = c
		return c, nil
	})

	ctx := context.Background()
	_, err := r.Get(ctx, "NPS")
	require.NoError(t, err)
	_, err = r.Get(ctx, "DPS")
	require.NoError(t, err)
	_, err = r.Get(ctx, "GHS")
	require.NoError(t, err)

	// One close fails; the others must still be attempted.
	require.Len(t, byURI, 3)
	byURI["mongodb://localhost:27017/school_dps"].disconnectErr = errors.New("connection reset")

	err = r.CloseAll(ctx)
	require.Error(t, err)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, "school_dps", connErr.Database)

	for _, c := range byURI {
		require.True(t, c.isDisconnected())
	}

	// Registry is cleared: a fresh access dials anew.
	_, err = r.Get(ctx, "NPS")
	require.NoError(t, err)
	require.Len(t, byURI, 3) // map keyed by URI, new dial reuses the key
}

func TestGetLogsThroughContextLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	r := newTestRegistry(t, func(ctx context.Context, uri string) (client, error) {
		return &fakeClient{}, nil
	})

	ctx := logging.WithLogger(context.Background(), zap.New(core))
	_, err := r.Get(ctx, "NPS")
	require.NoError(t, err)

	// The request-scoped logger, not the registry's own, received the event.
	require.Equal(t, 1, logs.FilterMessage("school database connected").Len())
}

func TestGetRejectsEmptyCode(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t, func(ctx context.Context, uri string) (client, error) {
		t.Fatal("dial must not be reached")
		return nil, nil
	})

	_, err := r.Get(context.Background(), "  ")
	require.Error(t, err)
}

func TestNewRegistryValidatesBaseURI(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry(RegistryConfig{BaseURI: "postgres://localhost:5432/app"})
	require.Error(t, err)

	_, err = NewRegistry(RegistryConfig{})
	require.Error(t, err)
}
