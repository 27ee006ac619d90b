package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/tour-booking-api/internal/models"
	"github.com/harentsoaR/tour-booking-api/internal/query"
)

var ReviewSchema = query.Schema{
	"rating": query.Number,
	"tour":   query.ObjectID,
	"user":   query.ObjectID,
}

type Reviews struct {
	c     collection[models.Review]
	users *Users
}

func NewReviews(db *mongo.Database, users *Users) *Reviews {
	return &Reviews{
		c: collection[models.Review]{
			coll:       db.Collection(reviewsCollection),
			entity:     "review",
			dupMessage: "You have already reviewed this tour",
		},
		users: users,
	}
}

// populate fills in the reviewing user's name and photo.
func (s *Reviews) populate(ctx context.Context, reviews []models.Review) error {
	ids := make([]primitive.ObjectID, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.UserID)
	}
	refs, err := s.users.Refs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range reviews {
		if ref, ok := refs[reviews[i].UserID]; ok {
			reviews[i].User = &models.UserRef{ID: ref.ID, Name: ref.Name, Photo: ref.Photo}
		}
	}
	return nil
}

func (s *Reviews) List(ctx context.Context, opts query.Options, scope bson.M) ([]models.Review, error) {
	reviews, err := s.c.find(ctx, opts, scope)
	if err != nil {
		return nil, err
	}
	return reviews, s.populate(ctx, reviews)
}

func (s *Reviews) ByTour(ctx context.Context, tourID primitive.ObjectID) ([]models.Review, error) {
	fo := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	reviews, err := s.c.findWith(ctx, bson.M{"tour": tourID}, fo)
	if err != nil {
		return nil, err
	}
	return reviews, s.populate(ctx, reviews)
}

func (s *Reviews) Get(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	r, err := s.c.byID(ctx, id)
	if err != nil {
		return nil, err
	}
	one := []models.Review{*r}
	if err := s.populate(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

func (s *Reviews) Create(ctx context.Context, r *models.Review) error {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return s.c.insert(ctx, r)
}

func (s *Reviews) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (*models.Review, error) {
	return s.c.updateByID(ctx, id, bson.M{"$set": fields})
}

// Delete removes a review and returns it so the caller knows its tour.
func (s *Reviews) Delete(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	return s.c.deleteByID(ctx, id)
}

// RatingStats counts and averages every rating attached to tourID.
func (s *Reviews) RatingStats(ctx context.Context, tourID primitive.ObjectID) (models.RatingStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tour": tourID}}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$tour",
			"nRating":   bson.M{"$sum": 1},
			"avgRating": bson.M{"$avg": "$rating"},
		}}},
	}
	var rows []struct {
		NRating   int     `bson:"nRating"`
		AvgRating float64 `bson:"avgRating"`
	}
	if err := s.c.aggregate(ctx, pipeline, &rows); err != nil {
		return models.RatingStats{}, err
	}
	if len(rows) == 0 {
		return models.RatingStats{}, nil
	}
	return models.RatingStats{Quantity: rows[0].NRating, Average: rows[0].AvgRating}, nil
}
