package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tour-booking-api/internal/models"
)

type RatingStore interface {
	RatingStats(ctx context.Context, tourID primitive.ObjectID) (models.RatingStats, error)
}

type TourRatingWriter interface {
	BumpReviewsRevision(ctx context.Context, id primitive.ObjectID) error
	ReviewsRevision(ctx context.Context, id primitive.ObjectID) (int64, error)
	// SetRatingSummary stores stats unless a summary computed at a later
	// revision is already stored. It reports whether it wrote.
	SetRatingSummary(ctx context.Context, id primitive.ObjectID, stats models.RatingStats, revision int64) (bool, error)
}

// Aggregator keeps a tour's ratingsQuantity and ratingsAverage in step with
// its reviews. Every run recomputes from scratch, so repeating it is harmless.
//
// Each review write bumps the tour's reviews revision before recomputing, and
// a summary is only stored over one computed at the same or an older
// revision. A run that read its ratings before a newer write therefore never
// replaces the newer summary, even when the runs live in separate processes
// holding separate locks.
type Aggregator struct {
	reviews RatingStore
	tours   TourRatingWriter
	locks   Locker
}

func NewAggregator(reviews RatingStore, tours TourRatingWriter, locks Locker) *Aggregator {
	return &Aggregator{reviews: reviews, tours: tours, locks: locks}
}

// ReviewsChanged records a review write on tourID and recomputes its summary.
func (a *Aggregator) ReviewsChanged(ctx context.Context, tourID primitive.ObjectID) (models.RatingStats, error) {
	if err := a.tours.BumpReviewsRevision(ctx, tourID); err != nil {
		return models.RatingStats{}, err
	}
	return a.Recalculate(ctx, tourID)
}

// Recalculate writes the current rating summary of tourID. Runs for the same
// tour are serialized through the Locker.
func (a *Aggregator) Recalculate(ctx context.Context, tourID primitive.ObjectID) (models.RatingStats, error) {
	unlock, err := a.locks.Lock(ctx, "tour-rating:"+tourID.Hex())
	if err != nil {
		return models.RatingStats{}, fmt.Errorf("lock tour %s: %w", tourID.Hex(), err)
	}
	defer unlock()

	revision, err := a.tours.ReviewsRevision(ctx, tourID)
	if err != nil {
		return models.RatingStats{}, err
	}
	stats, err := a.reviews.RatingStats(ctx, tourID)
	if err != nil {
		return models.RatingStats{}, err
	}
	if stats.Quantity == 0 {
		stats = models.RatingStats{Quantity: 0, Average: models.DefaultRatingsAverage}
	}
	if _, err := a.tours.SetRatingSummary(ctx, tourID, stats, revision); err != nil {
		return models.RatingStats{}, err
	}
	return stats, nil
}
