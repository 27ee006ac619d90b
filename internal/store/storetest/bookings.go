package storetest

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tour-booking-api/internal/models"
	"github.com/harentsoaR/tour-booking-api/internal/query"
)

type Bookings struct {
	t *table[models.Booking]
}

func NewBookings() *Bookings {
	return &Bookings{t: newTable("booking", func(b *models.Booking) *primitive.ObjectID { return &b.ID })}
}

func (s *Bookings) List(_ context.Context, opts query.Options, scope bson.M) ([]models.Booking, error) {
	return s.t.list(opts, scope), nil
}

func (s *Bookings) Get(_ context.Context, id primitive.ObjectID) (*models.Booking, error) {
	return s.t.get(id)
}

func (s *Bookings) ByUser(_ context.Context, userID primitive.ObjectID) ([]models.Booking, error) {
	return s.t.all(bson.M{"user": userID}), nil
}

func (s *Bookings) Create(_ context.Context, b *models.Booking) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	s.t.insert(b)
	return nil
}

func (s *Bookings) Update(_ context.Context, id primitive.ObjectID, fields bson.M) (*models.Booking, error) {
	return s.t.update(id, fields)
}

func (s *Bookings) Delete(_ context.Context, id primitive.ObjectID) error {
	_, err := s.t.remove(id)
	return err
}
