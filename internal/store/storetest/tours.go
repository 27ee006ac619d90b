package storetest

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tour-booking-api/internal/models"
	"github.com/harentsoaR/tour-booking-api/internal/query"
	"github.com/harentsoaR/tour-booking-api/internal/utils"
)

type Tours struct {
	t *table[models.Tour]
}

func NewTours() *Tours {
	t := newTable("tour", func(tour *models.Tour) *primitive.ObjectID { return &tour.ID })
	t.visible = func(tour *models.Tour) bool { return !tour.SecretTour }
	return &Tours{t: t}
}

// Raw returns the stored record, secret or not.
func (s *Tours) Raw(id primitive.ObjectID) (models.Tour, bool) {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	tour, ok := s.t.rows[id]
	return tour, ok
}

func (s *Tours) List(_ context.Context, opts query.Options, scope bson.M) ([]models.Tour, error) {
	return s.t.list(opts, scope), nil
}

func (s *Tours) Get(_ context.Context, id primitive.ObjectID) (*models.Tour, error) {
	return s.t.get(id)
}

func (s *Tours) BySlug(_ context.Context, slug string) (*models.Tour, error) {
	for _, tour := range s.t.all() {
		if tour.Slug == slug {
			return &tour, nil
		}
	}
	return nil, s.t.notFound()
}

func (s *Tours) ByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Tour, error) {
	want := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := []models.Tour{}
	for _, tour := range s.t.all() {
		if want[tour.ID] {
			out = append(out, tour)
		}
	}
	return out, nil
}

func (s *Tours) Create(_ context.Context, tour *models.Tour) error {
	tour.Slug = utils.Slugify(tour.Name)
	tour.RatingsAverage = models.DefaultRatingsAverage
	tour.RatingsQuantity = 0
	if tour.CreatedAt.IsZero() {
		tour.CreatedAt = time.Now().UTC()
	}
	s.t.insert(tour)
	return nil
}

func (s *Tours) Update(_ context.Context, id primitive.ObjectID, fields bson.M) (*models.Tour, error) {
	if name, ok := fields["name"].(string); ok {
		fields["slug"] = utils.Slugify(name)
	}
	return s.t.update(id, fields)
}

func (s *Tours) Delete(_ context.Context, id primitive.ObjectID) error {
	_, err := s.t.remove(id)
	return err
}

func (s *Tours) BumpReviewsRevision(_ context.Context, id primitive.ObjectID) error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	tour, ok := s.t.rows[id]
	if !ok {
		return s.t.notFound()
	}
	tour.ReviewsRevision++
	s.t.rows[id] = tour
	return nil
}

func (s *Tours) ReviewsRevision(_ context.Context, id primitive.ObjectID) (int64, error) {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	tour, ok := s.t.rows[id]
	if !ok {
		return 0, s.t.notFound()
	}
	return tour.ReviewsRevision, nil
}

func (s *Tours) SetRatingSummary(_ context.Context, id primitive.ObjectID, stats models.RatingStats, revision int64) (bool, error) {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	tour, ok := s.t.rows[id]
	if !ok || tour.RatingsRevision > revision {
		return false, nil
	}
	tour.RatingsQuantity = stats.Quantity
	tour.RatingsAverage = stats.Average
	tour.RatingsRevision = revision
	s.t.rows[id] = tour
	return true, nil
}

func (s *Tours) Stats(context.Context) ([]models.TourStats, error) {
	return []models.TourStats{}, nil
}

func (s *Tours) MonthlyPlan(context.Context, int) ([]models.MonthlyPlan, error) {
	return []models.MonthlyPlan{}, nil
}

func (s *Tours) Within(context.Context, float64, float64, float64) ([]models.Tour, error) {
	return s.t.all(), nil
}

func (s *Tours) Distances(context.Context, float64, float64, float64) ([]models.TourDistance, error) {
	return []models.TourDistance{}, nil
}
