package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Booking struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TourID    primitive.ObjectID `bson:"tour" json:"-"`
	UserID    primitive.ObjectID `bson:"user" json:"-"`
	Price     float64            `bson:"price" json:"price"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	Paid      bool               `bson:"paid" json:"paid"`

	// Populated on read.
	Tour *TourRef `bson:"-" json:"tour,omitempty"`
	User *UserRef `bson:"-" json:"user,omitempty"`
}
