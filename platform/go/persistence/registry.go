package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/opencampus-io/campus-saas/platform/go/logging"
	"github.com/opencampus-io/campus-saas/platform/go/tenant"
)

// Connection pool policy. These are process-wide constants rather than
// per-call knobs: one process talking to many simultaneously active schools
// must not be able to exhaust the database, and a warm floor avoids a cold
// start on every request.
const (
	maxPoolSize            = 50
	minPoolSize            = 5
	maxConnIdleTime        = 5 * time.Minute
	serverSelectionTimeout = 5 * time.Second
	socketTimeout          = 45 * time.Second
	// readyTimeout bounds dial + readiness ping on first access to a school.
	readyTimeout = 10 * time.Second
)

// client is the slice of *mongo.Client the registry needs. Tests substitute
// it to exercise lifecycle behavior without a server.
type client interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
	Disconnect(ctx context.Context) error
	Database(name string, opts ...*options.DatabaseOptions) *mongo.Database
}

type dialFunc func(ctx context.Context, uri string) (client, error)

// Handle is a live link to one school's database. Handles are owned by the
// Registry; callers obtain them from Get and never close them directly.
type Handle struct {
	code         string
	databaseName string
	client       client
}

// DatabaseName returns the resolved database name this handle is bound to.
func (h *Handle) DatabaseName() string { return h.databaseName }

// Database returns the school's database.
func (h *Handle) Database() *mongo.Database { return h.client.Database(h.databaseName) }

// Collection returns a collection within the school's database.
func (h *Handle) Collection(name string) *mongo.Collection {
	return h.Database().Collection(name)
}

// Ping probes readiness. The registry does not evict handles that fail after
// creation; callers seeing ping or operation failures may Close and re-Get to
// force a fresh dial.
func (h *Handle) Ping(ctx context.Context) error {
	return h.client.Ping(ctx, readpref.Primary())
}

// RegistryConfig carries the registry's dependencies.
type RegistryConfig struct {
	// BaseURI is the connection string the per-school database name is
	// substituted into, e.g. mongodb://localhost:27017 or a hosted
	// mongodb+srv URI with query options.
	BaseURI string
	Logger  *zap.Logger
}

// Registry caches live school connections keyed by derived database name.
// Connections are dialed lazily on first access, reused for the process
// lifetime, and closed only through Close/CloseAll.
type Registry struct {
	baseURI string
	logger  *zap.Logger
	dial    dialFunc

	group   singleflight.Group
	mu      sync.RWMutex
	handles map[string]*Handle
}

// NewRegistry constructs an empty registry. It validates the base URI shape
// eagerly so misconfiguration fails at startup, not on first request.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if _, err := URIForDatabase(cfg.BaseURI, "school_probe"); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Registry{
		baseURI: cfg.BaseURI,
		logger:  logger,
		dial:    defaultDial,
		handles: make(map[string]*Handle),
	}, nil
}

// Get returns the cached handle for the school, dialing it first if needed.
// Concurrent first accesses for the same school are coalesced into a single
// dial; the losers of the race receive the handle published by the winner.
// Failed dials are never cached.
func (r *Registry) Get(ctx context.Context, code string) (*Handle, error) {
	databaseName, err := tenant.DatabaseName(code)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	h, ok := r.handles[databaseName]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	v, err, _ := r.group.Do(databaseName, func() (interface{}, error) {
		r.mu.RLock()
		h, ok := r.handles[databaseName]
		r.mu.RUnlock()
		if ok {
			return h, nil
		}

		h, err := r.open(ctx, code, databaseName)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.handles[databaseName] = h
		r.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

func (r *Registry) open(ctx context.Context, code, databaseName string) (*Handle, error) {
	uri, err := URIForDatabase(r.baseURI, databaseName)
	if err != nil {
		return nil, &ConnectionError{Code: code, Database: databaseName, Err: err}
	}

	dialCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	c, err := r.dial(dialCtx, uri)
	if err != nil {
		return nil, &ConnectionError{Code: code, Database: databaseName, Err: err}
	}

	if err := c.Ping(dialCtx, readpref.Primary()); err != nil {
		_ = c.Disconnect(context.WithoutCancel(ctx))
		return nil, &ConnectionError{Code: code, Database: databaseName, Err: err}
	}

	logging.FromContext(ctx, r.logger).Info("school database connected",
		zap.String("school", code),
		zap.String("database", databaseName),
	)

	return &Handle{code: code, databaseName: databaseName, client: c}, nil
}

// Close disconnects and forgets the school's connection. Calling it for a
// school with no live connection is a no-op.
func (r *Registry) Close(ctx context.Context, code string) error {
	databaseName, err := tenant.DatabaseName(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	h, ok := r.handles[databaseName]
	delete(r.handles, databaseName)
	r.mu.Unlock()
	if !ok {
		return nil
	}

	if err := h.client.Disconnect(ctx); err != nil {
		return &ConnectionError{Code: code, Database: databaseName, Err: err}
	}
	return nil
}

// CloseAll disconnects every cached connection and clears the registry.
// Shutdown is best-effort: an individual close failure is logged and collected
// but does not stop the remaining closes.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]*Handle)
	r.mu.Unlock()

	var errs []error
	for name, h := range handles {
		if err := h.client.Disconnect(ctx); err != nil {
			logging.FromContext(ctx, r.logger).Warn("close school database",
				zap.String("database", name),
				zap.Error(err),
			)
			errs = append(errs, &ConnectionError{Code: h.code, Database: name, Err: err})
		}
	}
	return errors.Join(errs...)
}

func defaultDial(ctx context.Context, uri string) (client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(maxPoolSize).
		SetMinPoolSize(minPoolSize).
		SetMaxConnIdleTime(maxConnIdleTime).
		SetServerSelectionTimeout(serverSelectionTimeout).
		SetSocketTimeout(socketTimeout).
		SetConnectTimeout(readyTimeout)
	return mongo.Connect(ctx, opts)
}
