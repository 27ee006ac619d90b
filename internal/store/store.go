// Package store is the MongoDB persistence layer. Default predicates,
// population and derived fields are applied explicitly by the methods here.
package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	toursCollection    = "tours"
	reviewsCollection  = "reviews"
	bookingsCollection = "bookings"
)

type Store struct {
	DB       *mongo.Database
	Users    *Users
	Tours    *Tours
	Reviews  *Reviews
	Bookings *Bookings
}

func New(db *mongo.Database) *Store {
	users := NewUsers(db)
	reviews := NewReviews(db, users)
	tours := NewTours(db, users, reviews)
	bookings := NewBookings(db, users, tours)
	return &Store{DB: db, Users: users, Tours: tours, Reviews: reviews, Bookings: bookings}
}

// EnsureIndexes creates the unique and geo indexes the stores rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "passwordResetToken", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		toursCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "slug", Value: 1}}},
			{Keys: bson.D{{Key: "price", Value: 1}, {Key: "ratingsAverage", Value: -1}}},
			{Keys: bson.D{{Key: "startLocation", Value: "2dsphere"}}},
		},
		reviewsCollection: {
			{Keys: bson.D{{Key: "tour", Value: 1}, {Key: "user", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		bookingsCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}}},
			{Keys: bson.D{{Key: "tour", Value: 1}}},
		},
	}
	for name, models := range specs {
		if _, err := s.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}
