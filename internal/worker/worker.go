// Package worker consumes domain events and runs the side effects that do not
// need to block an HTTP response.
package worker

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
	"github.com/harentsoaR/tour-booking-api/internal/events"
	"github.com/harentsoaR/tour-booking-api/internal/models"
)

// Keys lists the routing keys the worker binds to.
var Keys = []string{events.RKReviewChanged, events.RKBookingPaid}

// errPoison marks a delivery that can never succeed, so it is not requeued.
var errPoison = errors.New("poison message")

// gone marks a lookup of a deleted record as poison. Retrying cannot bring
// the record back.
func gone(err error) error {
	if apperr.Is(err, apperr.KindNotFound) {
		return fmt.Errorf("%w: %v", errPoison, err)
	}
	return err
}

type Ratings interface {
	Recalculate(ctx context.Context, tourID primitive.ObjectID) (models.RatingStats, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type TourFinder interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Tour, error)
}

type Confirmer interface {
	SendBookingConfirmation(ctx context.Context, u *models.User, tour *models.Tour, price float64) error
}

type Worker struct {
	ratings  Ratings
	users    UserFinder
	tours    TourFinder
	notifier Confirmer
	log      *zap.Logger
}

func New(ratings Ratings, users UserFinder, tours TourFinder, notifier Confirmer, log *zap.Logger) *Worker {
	return &Worker{ratings: ratings, users: users, tours: tours, notifier: notifier, log: log}
}

// Run handles deliveries until ctx is done or the channel closes. Failed
// deliveries are requeued unless they can never be decoded.
func (w *Worker) Run(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			w.dispatch(ctx, d)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, d amqp.Delivery) {
	err := w.Handle(ctx, d.RoutingKey, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, errPoison):
		w.log.Error("dropping message", zap.String("key", d.RoutingKey), zap.Error(err))
		_ = d.Nack(false, false)
	default:
		w.log.Warn("handle failed, requeueing", zap.String("key", d.RoutingKey), zap.Error(err))
		_ = d.Nack(false, true)
	}
}

func (w *Worker) Handle(ctx context.Context, key string, body []byte) error {
	switch key {
	case events.RKReviewChanged:
		ev, err := events.Decode[events.ReviewChanged](body)
		if err != nil {
			return fmt.Errorf("%w: %v", errPoison, err)
		}
		tourID, err := primitive.ObjectIDFromHex(ev.TourID)
		if err != nil {
			return fmt.Errorf("%w: tour id %q", errPoison, ev.TourID)
		}
		stats, err := w.ratings.Recalculate(ctx, tourID)
		if err != nil {
			return gone(err)
		}
		w.log.Debug("ratings recalculated", zap.String("tour", ev.TourID),
			zap.Int("quantity", stats.Quantity), zap.Float64("average", stats.Average))
		return nil

	case events.RKBookingPaid:
		ev, err := events.Decode[events.BookingPaid](body)
		if err != nil {
			return fmt.Errorf("%w: %v", errPoison, err)
		}
		userID, err := primitive.ObjectIDFromHex(ev.UserID)
		if err != nil {
			return fmt.Errorf("%w: user id %q", errPoison, ev.UserID)
		}
		tourID, err := primitive.ObjectIDFromHex(ev.TourID)
		if err != nil {
			return fmt.Errorf("%w: tour id %q", errPoison, ev.TourID)
		}
		user, err := w.users.FindByID(ctx, userID)
		if err != nil {
			return gone(err)
		}
		tour, err := w.tours.Get(ctx, tourID)
		if err != nil {
			return gone(err)
		}
		return w.notifier.SendBookingConfirmation(ctx, user, tour, ev.Price)

	default:
		w.log.Info("skipping unknown key", zap.String("key", key))
		return nil
	}
}
