package persistence

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	catalog "github.com/opencampus-io/campus-saas/database"
	"github.com/opencampus-io/campus-saas/platform/go/logging"
	"github.com/opencampus-io/campus-saas/platform/go/tenant"
)

// ProvisionResult summarizes one provisioning run.
type ProvisionResult struct {
	// CollectionsCreated counts collections that did not exist before the run.
	CollectionsCreated int
}

// Provisioner brings a newly registered school's database to a ready state:
// every catalogued collection exists, carries its indexes, and the sequence
// document is seeded. Safe to re-run; a partial failure is recovered by
// invoking Provision again for the same school.
type Provisioner struct {
	registry *Registry
	logger   *zap.Logger
}

// NewProvisioner constructs a Provisioner on top of the connection registry.
func NewProvisioner(registry *Registry, logger *zap.Logger) *Provisioner {
	if registry == nil {
		panic("provisioner requires registry")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{registry: registry, logger: logger}
}

// Provision ensures collections, indexes, and counters for the school.
// Any unexpected error aborts the run and carries the school and collection
// it happened on; collections already created are left in place.
func (p *Provisioner) Provision(ctx context.Context, code string) (ProvisionResult, error) {
	h, err := p.registry.Get(ctx, code)
	if err != nil {
		return ProvisionResult{}, err
	}
	db := h.Database()

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return ProvisionResult{}, &ProvisioningError{Code: code, Err: err}
	}
	existing := make(map[string]bool, len(names))
	for _, n := range names {
		existing[n] = true
	}

	var result ProvisionResult
	for _, c := range catalog.Collections() {
		if !existing[c.Name] {
			if err := ensureCollectionExists(ctx, db, c.Name); err != nil {
				return ProvisionResult{}, &ProvisioningError{Code: code, Collection: c.Name, Err: err}
			}
			result.CollectionsCreated++
		}

		if len(c.Indexes) == 0 {
			continue
		}
		if _, err := db.Collection(c.Name).Indexes().CreateMany(ctx, c.Indexes); err != nil && !indexAlreadyExists(err) {
			return ProvisionResult{}, &ProvisioningError{Code: code, Collection: c.Name, Err: err}
		}
	}

	if err := p.seedSequences(ctx, db); err != nil {
		return ProvisionResult{}, &ProvisioningError{Code: code, Collection: catalog.SequencesCollection, Err: err}
	}

	logging.FromContext(ctx, p.logger).Info("school provisioned",
		zap.String("school", code),
		zap.String("database", h.DatabaseName()),
		zap.Int("collections_created", result.CollectionsCreated),
	)
	return result, nil
}

// seedSequences upserts the counter document with every known entity type at
// zero. $setOnInsert keeps re-provisioning from touching live counters.
func (p *Provisioner) seedSequences(ctx context.Context, db *mongo.Database) error {
	seed := bson.M{}
	for _, role := range tenant.Roles {
		seed[string(role)] = int64(0)
	}

	_, err := db.Collection(catalog.SequencesCollection).UpdateOne(ctx,
		bson.M{"_id": catalog.SequencesDocID},
		bson.M{
			"$setOnInsert": seed,
			"$currentDate": bson.M{"updated": true},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// ensureCollectionExists uses the driver's native create and tolerates a
// concurrent creation (NamespaceExists, code 48). Engines without a native
// create primitive would need the insert-then-delete marker workaround; the
// official driver has one, so the marker dance is skipped.
func ensureCollectionExists(ctx context.Context, db *mongo.Database, name string) error {
	err := db.CreateCollection(ctx, name)
	if err == nil {
		return nil
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || ce.Name == "NamespaceExists") {
		return nil
	}
	return err
}

// indexAlreadyExists reports whether index creation failed only because an
// equivalent or conflicting index is already present; re-provisioning treats
// that as success.
func indexAlreadyExists(err error) bool {
	var ce mongo.CommandError
	if !errors.As(err, &ce) {
		return false
	}
	switch ce.Code {
	case 68, 85, 86: // IndexAlreadyExists, IndexOptionsConflict, IndexKeySpecsConflict
		return true
	}
	return ce.Name == "IndexAlreadyExists" || ce.Name == "IndexOptionsConflict"
}
