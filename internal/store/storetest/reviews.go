package storetest

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
	"github.com/harentsoaR/tour-booking-api/internal/models"
	"github.com/harentsoaR/tour-booking-api/internal/query"
)

type Reviews struct {
	t *table[models.Review]

	// StatsHook, when set, runs between reading the ratings and returning
	// them. Tests use it to widen race windows.
	StatsHook func()
}

func NewReviews() *Reviews {
	return &Reviews{t: newTable("review", func(r *models.Review) *primitive.ObjectID { return &r.ID })}
}

func (s *Reviews) List(_ context.Context, opts query.Options, scope bson.M) ([]models.Review, error) {
	return s.t.list(opts, scope), nil
}

func (s *Reviews) Get(_ context.Context, id primitive.ObjectID) (*models.Review, error) {
	return s.t.get(id)
}

func (s *Reviews) Create(_ context.Context, r *models.Review) error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	for _, other := range s.t.rows {
		if other.TourID == r.TourID && other.UserID == r.UserID {
			return apperr.Conflict("You have already reviewed this tour")
		}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.t.insertLocked(r)
	return nil
}

func (s *Reviews) Update(_ context.Context, id primitive.ObjectID, fields bson.M) (*models.Review, error) {
	return s.t.update(id, fields)
}

func (s *Reviews) Delete(_ context.Context, id primitive.ObjectID) (*models.Review, error) {
	return s.t.remove(id)
}

func (s *Reviews) RatingStats(_ context.Context, tourID primitive.ObjectID) (models.RatingStats, error) {
	var stats models.RatingStats
	var sum float64
	for _, r := range s.t.all() {
		if r.TourID == tourID {
			stats.Quantity++
			sum += r.Rating
		}
	}
	if stats.Quantity > 0 {
		stats.Average = sum / float64(stats.Quantity)
	}
	if s.StatsHook != nil {
		s.StatsHook()
	}
	return stats, nil
}
