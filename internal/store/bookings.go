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

var BookingSchema = query.Schema{
	"tour":      query.ObjectID,
	"user":      query.ObjectID,
	"price":     query.Number,
	"paid":      query.Bool,
	"createdAt": query.Date,
}

type Bookings struct {
	c     collection[models.Booking]
	users *Users
	tours *Tours
}

func NewBookings(db *mongo.Database, users *Users, tours *Tours) *Bookings {
	return &Bookings{
		c: collection[models.Booking]{
			coll:   db.Collection(bookingsCollection),
			entity: "booking",
		},
		users: users,
		tours: tours,
	}
}

// populate attaches the booking user and the tour name.
func (s *Bookings) populate(ctx context.Context, bookings []models.Booking) error {
	userIDs := make([]primitive.ObjectID, 0, len(bookings))
	tourIDs := make([]primitive.ObjectID, 0, len(bookings))
	for _, b := range bookings {
		userIDs = append(userIDs, b.UserID)
		tourIDs = append(tourIDs, b.TourID)
	}
	users, err := s.users.Refs(ctx, userIDs)
	if err != nil {
		return err
	}
	tours, err := s.tours.ByIDs(ctx, tourIDs)
	if err != nil {
		return err
	}
	byID := make(map[primitive.ObjectID]*models.TourRef, len(tours))
	for i := range tours {
		byID[tours[i].ID] = tours[i].Ref()
	}
	for i := range bookings {
		bookings[i].User = users[bookings[i].UserID]
		bookings[i].Tour = byID[bookings[i].TourID]
	}
	return nil
}

func (s *Bookings) List(ctx context.Context, opts query.Options, scope bson.M) ([]models.Booking, error) {
	bookings, err := s.c.find(ctx, opts, scope)
	if err != nil {
		return nil, err
	}
	return bookings, s.populate(ctx, bookings)
}

func (s *Bookings) Get(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	b, err := s.c.byID(ctx, id)
	if err != nil {
		return nil, err
	}
	one := []models.Booking{*b}
	if err := s.populate(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

func (s *Bookings) ByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Booking, error) {
	fo := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.c.findWith(ctx, bson.M{"user": userID}, fo)
}

func (s *Bookings) Create(ctx context.Context, b *models.Booking) error {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	return s.c.insert(ctx, b)
}

func (s *Bookings) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (*models.Booking, error) {
	return s.c.updateByID(ctx, id, bson.M{"$set": fields})
}

func (s *Bookings) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.deleteByID(ctx, id)
	return err
}
