package persistence

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"

	catalog "github.com/opencampus-io/campus-saas/database"
)

// Model is a school-scoped data access handle for one catalogued entity.
type Model struct {
	entity     catalog.Entity
	collection *mongo.Collection
}

// Entity returns the entity tag this model is bound to.
func (m *Model) Entity() catalog.Entity { return m.entity }

// Collection returns the underlying collection on the school's database.
func (m *Model) Collection() *mongo.Collection { return m.collection }

// binding holds the models built against one connection handle. The handle
// is remembered so a binding made against a since-closed connection is
// recognized as stale.
type binding struct {
	handle *Handle
	models map[catalog.Entity]*Model
}

// ModelFactory binds catalogued entities to a school's connection, caching
// each binding so repeated lookups for the same (school, entity) pair do not
// rebuild it. The only failure mode it adds over the registry is an unknown
// entity tag, which is a programming error.
type ModelFactory struct {
	registry *Registry

	mu    sync.RWMutex
	cache map[string]*binding // keyed by database name
}

// NewModelFactory constructs a ModelFactory on top of the connection registry.
func NewModelFactory(registry *Registry) *ModelFactory {
	if registry == nil {
		panic("model factory requires registry")
	}
	return &ModelFactory{
		registry: registry,
		cache:    make(map[string]*binding),
	}
}

// Model returns the school-scoped model for the entity. A cached binding is
// reused only while its connection handle is still the registry's current
// one; after a close-and-reopen cycle the stale binding is replaced, not
// leaked.
func (f *ModelFactory) Model(ctx context.Context, code string, entity catalog.Entity) (*Model, error) {
	desc, ok := catalog.Lookup(entity)
	if !ok {
		return nil, fmt.Errorf("unknown entity %q", entity)
	}

	h, err := f.registry.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	f.mu.RLock()
	b := f.cache[h.DatabaseName()]
	if b != nil && b.handle == h {
		if m := b.models[entity]; m != nil {
			f.mu.RUnlock()
			return m, nil
		}
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	b = f.cache[h.DatabaseName()]
	if b == nil || b.handle != h {
		b = &binding{handle: h, models: make(map[catalog.Entity]*Model)}
		f.cache[h.DatabaseName()] = b
	}
	if m := b.models[entity]; m != nil {
		return m, nil
	}

	m := &Model{entity: entity, collection: h.Collection(desc.Name)}
	b.models[entity] = m
	return m, nil
}
