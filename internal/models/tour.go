package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"

	DefaultRatingsAverage = 4.5
)

type Location struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"` // [lng, lat]
	Address     string    `bson:"address,omitempty" json:"address,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Day         int       `bson:"day,omitempty" json:"day,omitempty"`
}

// Tour is a bookable tour. ReviewsRevision counts review writes and
// RatingsRevision is the revision the stored rating summary was computed at.
type Tour struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name            string               `bson:"name" json:"name"`
	Slug            string               `bson:"slug" json:"slug"`
	Duration        int                  `bson:"duration" json:"duration"`
	MaxGroupSize    int                  `bson:"maxGroupSize" json:"maxGroupSize"`
	Difficulty      string               `bson:"difficulty" json:"difficulty"`
	RatingsAverage  float64              `bson:"ratingsAverage" json:"ratingsAverage"`
	RatingsQuantity int                  `bson:"ratingsQuantity" json:"ratingsQuantity"`
	ReviewsRevision int64                `bson:"reviewsRevision" json:"-"`
	RatingsRevision int64                `bson:"ratingsRevision" json:"-"`
	Price           float64              `bson:"price" json:"price"`
	PriceDiscount   float64              `bson:"priceDiscount,omitempty" json:"priceDiscount,omitempty"`
	Summary         string               `bson:"summary" json:"summary"`
	Description     string               `bson:"description,omitempty" json:"description,omitempty"`
	ImageCover      string               `bson:"imageCover" json:"imageCover"`
	Images          []string             `bson:"images" json:"images"`
	CreatedAt       time.Time            `bson:"createdAt" json:"createdAt"`
	StartDates      []time.Time          `bson:"startDates" json:"startDates"`
	SecretTour      bool                 `bson:"secretTour" json:"-"`
	StartLocation   *Location            `bson:"startLocation,omitempty" json:"startLocation,omitempty"`
	Locations       []Location           `bson:"locations" json:"locations"`
	GuideIDs        []primitive.ObjectID `bson:"guides" json:"-"`

	// Populated on single-tour reads.
	Guides  []UserRef `bson:"-" json:"guides,omitempty"`
	Reviews []Review  `bson:"-" json:"reviews,omitempty"`
}

// DurationWeeks mirrors the virtual field exposed on tour pages.
func (t *Tour) DurationWeeks() float64 {
	return float64(t.Duration) / 7
}

type TourRef struct {
	ID   primitive.ObjectID `bson:"_id" json:"id"`
	Name string             `bson:"name" json:"name"`
	Slug string             `bson:"slug,omitempty" json:"slug,omitempty"`
}

func (t *Tour) Ref() *TourRef {
	return &TourRef{ID: t.ID, Name: t.Name, Slug: t.Slug}
}

// TourStats is one row of the tour-stats aggregate.
type TourStats struct {
	Difficulty string  `bson:"_id" json:"difficulty"`
	NumTours   int     `bson:"numTours" json:"numTours"`
	NumRatings int     `bson:"numRatings" json:"numRatings"`
	AvgRating  float64 `bson:"avgRating" json:"avgRating"`
	AvgPrice   float64 `bson:"avgPrice" json:"avgPrice"`
	MinPrice   float64 `bson:"minPrice" json:"minPrice"`
	MaxPrice   float64 `bson:"maxPrice" json:"maxPrice"`
}

// MonthlyPlan is one month row of the monthly-plan aggregate.
type MonthlyPlan struct {
	Month         int      `bson:"month" json:"month"`
	NumTourStarts int      `bson:"numTourStarts" json:"numTourStarts"`
	Tours         []string `bson:"tours" json:"tours"`
}

// TourDistance is a tour name with its distance from a point.
type TourDistance struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Distance float64            `bson:"distance" json:"distance"`
}
