package persistence

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	catalog "github.com/opencampus-io/campus-saas/database"
)

// errCounterCorrupt marks a counter field that is absent or non-numeric after
// an increment, which the allocator treats as mechanically fixable.
var errCounterCorrupt = errors.New("counter missing or non-numeric")

// Sequencer hands out strictly increasing integers per (school, entity type).
// Allocation is a single atomic find-and-increment on the school's sequence
// document, so two concurrent callers can never receive the same value.
// Sequences are not gap-free: a failed insert downstream of a successful
// allocation burns the number.
type Sequencer struct {
	registry *Registry
}

// NewSequencer constructs a Sequencer on top of the connection registry.
func NewSequencer(registry *Registry) *Sequencer {
	if registry == nil {
		panic("sequencer requires registry")
	}
	return &Sequencer{registry: registry}
}

// Next allocates the next value for the entity type, starting at 1 for a
// counter that has never been used. The sequence document is upserted on
// first touch, so Next works even for a school that was never provisioned.
//
// A missing or non-numeric counter field is healed once: the field is reset
// to 0 and the increment retried. A second failure is fatal for this
// allocation and surfaces as a *SequenceError.
func (s *Sequencer) Next(ctx context.Context, code string, entity string) (int64, error) {
	h, err := s.registry.Get(ctx, code)
	if err != nil {
		return 0, err
	}
	coll := h.Collection(catalog.SequencesCollection)

	n, err := incrementCounter(ctx, coll, entity)
	if err == nil {
		return n, nil
	}

	// Two concurrent upserts on a brand-new document race on _id; the loser
	// sees a duplicate key error and succeeds on retry against the now
	// existing document.
	if mongo.IsDuplicateKeyError(err) {
		n, err = incrementCounter(ctx, coll, entity)
		if err == nil {
			return n, nil
		}
	}

	if !isCounterCorruption(err) {
		return 0, &SequenceError{Code: code, Entity: entity, Err: err}
	}

	reset := bson.M{"$set": bson.M{entity: int64(0)}}
	if _, uerr := coll.UpdateOne(ctx, bson.M{"_id": catalog.SequencesDocID}, reset, options.Update().SetUpsert(true)); uerr != nil {
		return 0, &SequenceError{Code: code, Entity: entity, Err: fmt.Errorf("reset counter: %w", uerr)}
	}

	n, err = incrementCounter(ctx, coll, entity)
	if err != nil {
		return 0, &SequenceError{Code: code, Entity: entity, Err: err}
	}
	return n, nil
}

func incrementCounter(ctx context.Context, coll *mongo.Collection, entity string) (int64, error) {
	res := coll.FindOneAndUpdate(ctx,
		bson.M{"_id": catalog.SequencesDocID},
		bson.M{
			"$inc":         bson.M{entity: 1},
			"$currentDate": bson.M{"updated": true},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	var doc bson.M
	if err := res.Decode(&doc); err != nil {
		return 0, err
	}

	switch v := doc[entity].(type) {
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%w: field %q holds %T", errCounterCorrupt, entity, doc[entity])
	}
}

// isCounterCorruption reports whether the increment failed because the
// counter field itself is unusable: absent, non-numeric in the returned
// document, or of a type $inc refuses to touch (server TypeMismatch, code 14).
func isCounterCorruption(err error) bool {
	if errors.Is(err, errCounterCorrupt) {
		return true
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 14 {
		return true
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 14 {
				return true
			}
		}
	}
	return false
}
