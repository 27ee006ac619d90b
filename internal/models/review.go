package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Review    string             `bson:"review" json:"review"`
	Rating    float64            `bson:"rating" json:"rating"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	TourID    primitive.ObjectID `bson:"tour" json:"tour"`
	UserID    primitive.ObjectID `bson:"user" json:"-"`

	// Populated on read.
	User *UserRef `bson:"-" json:"user,omitempty"`
}

// RatingStats is the aggregate of all review ratings of one tour.
type RatingStats struct {
	Quantity int
	Average  float64
}
