package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
	"github.com/harentsoaR/tour-booking-api/internal/query"
)

// collection is the typed access path shared by every store. defaults is the
// predicate applied to every read and write unless the caller drops it.
type collection[T any] struct {
	coll       *mongo.Collection
	entity     string
	defaults   bson.M
	dupMessage string
}

func (c *collection[T]) where(filters ...bson.M) bson.M {
	parts := bson.A{}
	if len(c.defaults) > 0 {
		parts = append(parts, c.defaults)
	}
	for _, f := range filters {
		if len(f) > 0 {
			parts = append(parts, f)
		}
	}
	switch len(parts) {
	case 0:
		return bson.M{}
	case 1:
		return parts[0].(bson.M)
	default:
		return bson.M{"$and": parts}
	}
}

func (c *collection[T]) translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.Newf(apperr.KindNotFound, "No %s found with that ID", c.entity)
	case mongo.IsDuplicateKeyError(err):
		msg := c.dupMessage
		if msg == "" {
			msg = fmt.Sprintf("Duplicate %s field value. Please use another value", c.entity)
		}
		return apperr.Wrap(apperr.KindConflict, msg, err)
	default:
		return fmt.Errorf("%s store: %w", c.entity, err)
	}
}

func (c *collection[T]) find(ctx context.Context, opts query.Options, scope bson.M) ([]T, error) {
	fo := options.Find().SetSort(opts.Sort)
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	if len(opts.Projection) > 0 {
		fo.SetProjection(opts.Projection)
	}
	return c.findWith(ctx, c.where(opts.Filter, scope), fo)
}

func (c *collection[T]) findWith(ctx context.Context, filter bson.M, fo *options.FindOptions) ([]T, error) {
	cursor, err := c.coll.Find(ctx, filter, fo)
	if err != nil {
		return nil, c.translate(err)
	}
	defer cursor.Close(ctx)

	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, c.translate(err)
	}
	return out, nil
}

func (c *collection[T]) findOne(ctx context.Context, filter bson.M) (*T, error) {
	var doc T
	if err := c.coll.FindOne(ctx, c.where(filter)).Decode(&doc); err != nil {
		return nil, c.translate(err)
	}
	return &doc, nil
}

func (c *collection[T]) byID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	return c.findOne(ctx, bson.M{"_id": id})
}

func (c *collection[T]) insert(ctx context.Context, doc *T) error {
	_, err := c.coll.InsertOne(ctx, doc)
	return c.translate(err)
}

func (c *collection[T]) updateByID(ctx context.Context, id primitive.ObjectID, update bson.M) (*T, error) {
	var doc T
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := c.coll.FindOneAndUpdate(ctx, c.where(bson.M{"_id": id}), update, opts).Decode(&doc)
	if err != nil {
		return nil, c.translate(err)
	}
	return &doc, nil
}

func (c *collection[T]) deleteByID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	var doc T
	if err := c.coll.FindOneAndDelete(ctx, c.where(bson.M{"_id": id})).Decode(&doc); err != nil {
		return nil, c.translate(err)
	}
	return &doc, nil
}

func (c *collection[T]) aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cursor, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return c.translate(err)
	}
	defer cursor.Close(ctx)
	return c.translate(cursor.All(ctx, out))
}
