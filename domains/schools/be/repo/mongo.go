package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/opencampus-io/campus-saas/domains/schools/be/service"
)

// collectionName is the directory collection within the shared admin database.
const collectionName = "schools"

type schoolDoc struct {
	ID           string    `bson:"_id"`
	Code         string    `bson:"code"`
	DisplayCode  string    `bson:"displayCode"`
	Name         string    `bson:"name"`
	DatabaseName string    `bson:"databaseName"`
	Status       string    `bson:"status"`
	CreatedAt    time.Time `bson:"createdAt"`
}

// MongoRepository stores the school directory in the shared admin database.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository constructs the repository on the given admin database.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	if db == nil {
		panic("mongo repository requires database")
	}
	return &MongoRepository{coll: db.Collection(collectionName)}
}

// EnsureIndexes creates the unique code index. Idempotent; callers run it at
// startup.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetName("uniq_school_code").SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("ensure school directory indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, s service.School) (service.School, error) {
	doc := schoolDoc{
		ID:           s.ID.String(),
		Code:         s.Code,
		DisplayCode:  s.DisplayCode,
		Name:         s.Name,
		DatabaseName: s.DatabaseName,
		Status:       string(s.Status),
		CreatedAt:    s.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return service.School{}, service.ErrConflictCode
		}
		return service.School{}, fmt.Errorf("insert school %q: %w", s.Code, err)
	}
	return s, nil
}

func (r *MongoRepository) Get(ctx context.Context, code string) (service.School, error) {
	var doc schoolDoc
	err := r.coll.FindOne(ctx, bson.M{"code": code}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return service.School{}, service.ErrNotFound
	}
	if err != nil {
		return service.School{}, fmt.Errorf("find school %q: %w", code, err)
	}
	return fromDoc(doc)
}

func (r *MongoRepository) List(ctx context.Context) ([]service.School, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	defer cursor.Close(ctx)

	var out []service.School
	for cursor.Next(ctx) {
		var doc schoolDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode school: %w", err)
		}
		s, err := fromDoc(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, cursor.Err()
}

func (r *MongoRepository) SetStatus(ctx context.Context, code string, status service.Status) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"code": code},
		bson.M{"$set": bson.M{"status": string(status)}},
	)
	if err != nil {
		return fmt.Errorf("update school %q status: %w", code, err)
	}
	if result.MatchedCount == 0 {
		return service.ErrNotFound
	}
	return nil
}

func fromDoc(doc schoolDoc) (service.School, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return service.School{}, fmt.Errorf("parse school id %q: %w", doc.ID, err)
	}
	return service.School{
		ID:           id,
		Code:         doc.Code,
		DisplayCode:  doc.DisplayCode,
		Name:         doc.Name,
		DatabaseName: doc.DatabaseName,
		Status:       service.Status(doc.Status),
		CreatedAt:    doc.CreatedAt,
	}, nil
}

var _ service.Repository = (*MongoRepository)(nil)
