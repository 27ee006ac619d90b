package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/tour-booking-api/internal/events"
	"github.com/harentsoaR/tour-booking-api/internal/models"
	"github.com/harentsoaR/tour-booking-api/internal/services"
	"github.com/harentsoaR/tour-booking-api/internal/store/storetest"
)

type ack struct {
	acked, requeued, dropped int
}

func (a *ack) Ack(uint64, bool) error { a.acked++; return nil }

func (a *ack) Nack(_ uint64, _ bool, requeue bool) error {
	if requeue {
		a.requeued++
	} else {
		a.dropped++
	}
	return nil
}

func (a *ack) Reject(_ uint64, requeue bool) error { return a.Nack(0, false, requeue) }

type flakyRatings struct{ err error }

func (f flakyRatings) Recalculate(context.Context, primitive.ObjectID) (models.RatingStats, error) {
	return models.RatingStats{}, f.err
}

type fixture struct {
	worker  *Worker
	users   *storetest.Users
	tours   *storetest.Tours
	reviews *storetest.Reviews
	outbox  *storetest.Outbox
}

func newFixture() *fixture {
	f := &fixture{
		users:   storetest.NewUsers(),
		tours:   storetest.NewTours(),
		reviews: storetest.NewReviews(),
		outbox:  &storetest.Outbox{},
	}
	agg := services.NewAggregator(f.reviews, f.tours, services.NewKeyedMutex())
	f.worker = New(agg, f.users, f.tours, services.NewNotificationService(f.outbox), zap.NewNop())
	return f
}

func payload(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestReviewChangedRecalculates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tour := &models.Tour{Name: "The Forest Hiker", Price: 397}
	require.NoError(t, f.tours.Create(ctx, tour))
	require.NoError(t, f.reviews.Create(ctx, &models.Review{Review: "Great", Rating: 3, TourID: tour.ID, UserID: primitive.NewObjectID()}))
	require.NoError(t, f.reviews.Create(ctx, &models.Review{Review: "Fine", Rating: 4, TourID: tour.ID, UserID: primitive.NewObjectID()}))

	err := f.worker.Handle(ctx, events.RKReviewChanged, payload(t, events.ReviewChanged{TourID: tour.ID.Hex()}))
	require.NoError(t, err)

	stored, _ := f.tours.Raw(tour.ID)
	assert.Equal(t, 2, stored.RatingsQuantity)
	assert.Equal(t, 3.5, stored.RatingsAverage)
}

func TestBookingPaidSendsConfirmation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := &models.User{Name: "Jonas Schmedtmann", Email: "jonas@example.com"}
	require.NoError(t, f.users.Create(ctx, user))
	tour := &models.Tour{Name: "The Sea Explorer", Price: 497}
	require.NoError(t, f.tours.Create(ctx, tour))

	err := f.worker.Handle(ctx, events.RKBookingPaid, payload(t, events.BookingPaid{
		BookingID: primitive.NewObjectID().Hex(), TourID: tour.ID.Hex(), UserID: user.ID.Hex(), Price: 497,
	}))
	require.NoError(t, err)

	sent := f.outbox.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "jonas@example.com", sent[0].To)
	assert.Contains(t, sent[0].Body, "The Sea Explorer")
	assert.Contains(t, sent[0].Body, "Hi Jonas")
}

func TestRunAcknowledges(t *testing.T) {
	f := newFixture()
	tour := &models.Tour{Name: "The Park Camper", Price: 1497}
	require.NoError(t, f.tours.Create(context.Background(), tour))

	a := &ack{}
	msgs := make(chan amqp.Delivery, 3)
	msgs <- amqp.Delivery{Acknowledger: a, RoutingKey: events.RKReviewChanged, Body: payload(t, events.ReviewChanged{TourID: tour.ID.Hex()})}
	msgs <- amqp.Delivery{Acknowledger: a, RoutingKey: events.RKReviewChanged, Body: []byte("{not json")}
	msgs <- amqp.Delivery{Acknowledger: a, RoutingKey: "something.else", Body: []byte("{}")}
	close(msgs)

	require.NoError(t, f.worker.Run(context.Background(), msgs))
	assert.Equal(t, 2, a.acked)
	assert.Equal(t, 1, a.dropped)
	assert.Zero(t, a.requeued)
}

func TestRunRequeuesTransientFailures(t *testing.T) {
	f := newFixture()
	f.worker.ratings = flakyRatings{err: errors.New("mongo unavailable")}

	a := &ack{}
	msgs := make(chan amqp.Delivery, 1)
	msgs <- amqp.Delivery{Acknowledger: a, RoutingKey: events.RKReviewChanged,
		Body: payload(t, events.ReviewChanged{TourID: primitive.NewObjectID().Hex()})}
	close(msgs)

	require.NoError(t, f.worker.Run(context.Background(), msgs))
	assert.Equal(t, 1, a.requeued)
	assert.Zero(t, a.acked)
}

func TestDeletedRecordsAreDropped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := &models.User{Name: "Gone Soon", Email: "gone@example.com"}
	require.NoError(t, f.users.Create(ctx, user))
	tour := &models.Tour{Name: "The Wine Taster", Price: 1997}
	require.NoError(t, f.tours.Create(ctx, tour))

	missingUser := payload(t, events.BookingPaid{TourID: tour.ID.Hex(), UserID: primitive.NewObjectID().Hex(), Price: 1997})
	missingTour := payload(t, events.BookingPaid{TourID: primitive.NewObjectID().Hex(), UserID: user.ID.Hex(), Price: 1997})
	deletedTour := payload(t, events.ReviewChanged{TourID: primitive.NewObjectID().Hex()})

	err := f.worker.Handle(ctx, events.RKBookingPaid, missingUser)
	assert.ErrorIs(t, err, errPoison)
	err = f.worker.Handle(ctx, events.RKBookingPaid, missingTour)
	assert.ErrorIs(t, err, errPoison)
	err = f.worker.Handle(ctx, events.RKReviewChanged, deletedTour)
	assert.ErrorIs(t, err, errPoison)

	a := &ack{}
	msgs := make(chan amqp.Delivery, 3)
	msgs <- amqp.Delivery{Acknowledger: a, RoutingKey: events.RKBookingPaid, Body: missingUser}
	msgs <- amqp.Delivery{Acknowledger: a, RoutingKey: events.RKBookingPaid, Body: missingTour}
	msgs <- amqp.Delivery{Acknowledger: a, RoutingKey: events.RKReviewChanged, Body: deletedTour}
	close(msgs)

	require.NoError(t, f.worker.Run(ctx, msgs))
	assert.Equal(t, 3, a.dropped)
	assert.Zero(t, a.requeued)
	assert.Empty(t, f.outbox.Sent())
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.worker.Run(ctx, make(chan amqp.Delivery)) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
