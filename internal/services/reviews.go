package services

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
	"github.com/harentsoaR/tour-booking-api/internal/events"
	"github.com/harentsoaR/tour-booking-api/internal/models"
	"github.com/harentsoaR/tour-booking-api/internal/query"
)

type ReviewStore interface {
	RatingStore
	List(ctx context.Context, opts query.Options, scope bson.M) ([]models.Review, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Review, error)
	Create(ctx context.Context, r *models.Review) error
	Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (*models.Review, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Review, error)
}

// ReviewService wraps the review store so that every mutation is followed by
// a rating recalculation of the affected tour.
type ReviewService struct {
	store     ReviewStore
	ratings   *Aggregator
	publisher events.Publisher
	log       *zap.Logger
}

func NewReviewService(store ReviewStore, ratings *Aggregator, publisher events.Publisher, log *zap.Logger) *ReviewService {
	return &ReviewService{store: store, ratings: ratings, publisher: publisher, log: log}
}

func validateReview(text string, rating float64) error {
	if strings.TrimSpace(text) == "" {
		return apperr.Validation("Invalid input data. Review can not be empty!")
	}
	if rating < models.MinRating || rating > models.MaxRating {
		return apperr.Validation("Invalid input data. Rating must be between 1 and 5")
	}
	return nil
}

func (s *ReviewService) List(ctx context.Context, opts query.Options, scope bson.M) ([]models.Review, error) {
	return s.store.List(ctx, opts, scope)
}

func (s *ReviewService) Get(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	return s.store.Get(ctx, id)
}

func (s *ReviewService) Create(ctx context.Context, r *models.Review) error {
	r.Review = strings.TrimSpace(r.Review)
	if err := validateReview(r.Review, r.Rating); err != nil {
		return err
	}
	if r.TourID.IsZero() || r.UserID.IsZero() {
		return apperr.Validation("Invalid input data. Review must belong to a tour and a user")
	}
	if err := s.store.Create(ctx, r); err != nil {
		return err
	}
	return s.changed(ctx, r.TourID)
}

// Update applies a partial update. The tour and author of a review are fixed
// once written.
func (s *ReviewService) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (*models.Review, error) {
	delete(fields, "tour")
	delete(fields, "user")
	delete(fields, "createdAt")
	if text, ok := fields["review"].(string); ok {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, apperr.Validation("Invalid input data. Review can not be empty!")
		}
		fields["review"] = text
	}
	if raw, ok := fields["rating"]; ok {
		rating, ok := toFloat(raw)
		if !ok || rating < models.MinRating || rating > models.MaxRating {
			return nil, apperr.Validation("Invalid input data. Rating must be between 1 and 5")
		}
		fields["rating"] = rating
	}

	r, err := s.store.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	if err := s.changed(ctx, r.TourID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ReviewService) Delete(ctx context.Context, id primitive.ObjectID) error {
	r, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	return s.changed(ctx, r.TourID)
}

func (s *ReviewService) changed(ctx context.Context, tourID primitive.ObjectID) error {
	if _, err := s.ratings.ReviewsChanged(ctx, tourID); err != nil {
		return apperr.Internal("Failed to update tour ratings", err)
	}
	evt := events.ReviewChanged{TourID: tourID.Hex()}
	if err := s.publisher.PublishJSON(ctx, events.RKReviewChanged, evt); err != nil {
		s.log.Warn("publish review change", zap.String("tour", tourID.Hex()), zap.Error(err))
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
