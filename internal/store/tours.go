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
	"github.com/harentsoaR/tour-booking-api/internal/utils"
)

var TourSchema = query.Schema{
	"name":            query.String,
	"slug":            query.String,
	"duration":        query.Number,
	"maxGroupSize":    query.Number,
	"difficulty":      query.String,
	"ratingsAverage":  query.Number,
	"ratingsQuantity": query.Number,
	"price":           query.Number,
	"priceDiscount":   query.Number,
	"startDates":      query.Date,
}

var publicTours = bson.M{"secretTour": bson.M{"$ne": true}}

type Tours struct {
	c       collection[models.Tour]
	users   *Users
	reviews *Reviews
}

func NewTours(db *mongo.Database, users *Users, reviews *Reviews) *Tours {
	return &Tours{
		c: collection[models.Tour]{
			coll:       db.Collection(toursCollection),
			entity:     "tour",
			defaults:   publicTours,
			dupMessage: "A tour with this name already exists",
		},
		users:   users,
		reviews: reviews,
	}
}

func (s *Tours) List(ctx context.Context, opts query.Options, scope bson.M) ([]models.Tour, error) {
	return s.c.find(ctx, opts, scope)
}

// Get loads one tour with its guides and reviews populated.
func (s *Tours) Get(ctx context.Context, id primitive.ObjectID) (*models.Tour, error) {
	t, err := s.c.byID(ctx, id)
	if err != nil {
		return nil, err
	}
	return t, s.populate(ctx, t)
}

func (s *Tours) BySlug(ctx context.Context, slug string) (*models.Tour, error) {
	t, err := s.c.findOne(ctx, bson.M{"slug": slug})
	if err != nil {
		return nil, err
	}
	return t, s.populate(ctx, t)
}

// ByIDs loads the listed tours in no particular order.
func (s *Tours) ByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Tour, error) {
	if len(ids) == 0 {
		return []models.Tour{}, nil
	}
	return s.c.findWith(ctx, s.c.where(bson.M{"_id": bson.M{"$in": uniqueIDs(ids)}}), options.Find())
}

func (s *Tours) populate(ctx context.Context, t *models.Tour) error {
	refs, err := s.users.Refs(ctx, t.GuideIDs)
	if err != nil {
		return err
	}
	t.Guides = make([]models.UserRef, 0, len(t.GuideIDs))
	for _, id := range t.GuideIDs {
		if ref, ok := refs[id]; ok {
			t.Guides = append(t.Guides, *ref)
		}
	}
	t.Reviews, err = s.reviews.ByTour(ctx, t.ID)
	return err
}

func (s *Tours) Create(ctx context.Context, t *models.Tour) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	t.Slug = utils.Slugify(t.Name)
	t.RatingsAverage = models.DefaultRatingsAverage
	t.RatingsQuantity = 0
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Images == nil {
		t.Images = []string{}
	}
	if t.StartDates == nil {
		t.StartDates = []time.Time{}
	}
	if t.Locations == nil {
		t.Locations = []models.Location{}
	}
	if t.GuideIDs == nil {
		t.GuideIDs = []primitive.ObjectID{}
	}
	return s.c.insert(ctx, t)
}

func (s *Tours) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (*models.Tour, error) {
	if name, ok := fields["name"].(string); ok {
		fields["slug"] = utils.Slugify(name)
	}
	return s.c.updateByID(ctx, id, bson.M{"$set": fields})
}

func (s *Tours) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.deleteByID(ctx, id)
	return err
}

// BumpReviewsRevision records one review write on the tour. Secret tours are
// included.
func (s *Tours) BumpReviewsRevision(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.coll.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"reviewsRevision": 1}})
	if err != nil {
		return s.c.translate(err)
	}
	if res.MatchedCount == 0 {
		return s.c.translate(mongo.ErrNoDocuments)
	}
	return nil
}

func (s *Tours) ReviewsRevision(ctx context.Context, id primitive.ObjectID) (int64, error) {
	var doc struct {
		Revision int64 `bson:"reviewsRevision"`
	}
	fo := options.FindOne().SetProjection(bson.M{"reviewsRevision": 1})
	if err := s.c.coll.FindOne(ctx, bson.M{"_id": id}, fo).Decode(&doc); err != nil {
		return 0, s.c.translate(err)
	}
	return doc.Revision, nil
}

// SetRatingSummary writes the derived rating fields unless the stored summary
// was computed at a later revision. Only the aggregator calls it.
func (s *Tours) SetRatingSummary(ctx context.Context, id primitive.ObjectID, stats models.RatingStats, revision int64) (bool, error) {
	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"ratingsRevision": bson.M{"$lte": revision}},
			bson.M{"ratingsRevision": bson.M{"$exists": false}},
		},
	}
	res, err := s.c.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"ratingsQuantity": stats.Quantity,
		"ratingsAverage":  stats.Average,
		"ratingsRevision": revision,
	}})
	if err != nil {
		return false, s.c.translate(err)
	}
	return res.MatchedCount > 0, nil
}

func (s *Tours) Stats(ctx context.Context) ([]models.TourStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: s.c.where(bson.M{"ratingsAverage": bson.M{"$gte": 4.5}})}},
		{{Key: "$group", Value: bson.M{
			"_id":        bson.M{"$toUpper": "$difficulty"},
			"numTours":   bson.M{"$sum": 1},
			"numRatings": bson.M{"$sum": "$ratingsQuantity"},
			"avgRating":  bson.M{"$avg": "$ratingsAverage"},
			"avgPrice":   bson.M{"$avg": "$price"},
			"minPrice":   bson.M{"$min": "$price"},
			"maxPrice":   bson.M{"$max": "$price"},
		}}},
		{{Key: "$sort", Value: bson.M{"avgPrice": 1}}},
	}
	out := []models.TourStats{}
	return out, s.c.aggregate(ctx, pipeline, &out)
}

func (s *Tours) MonthlyPlan(ctx context.Context, year int) ([]models.MonthlyPlan, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: s.c.where()}},
		{{Key: "$unwind", Value: "$startDates"}},
		{{Key: "$match", Value: bson.M{"startDates": bson.M{"$gte": from, "$lt": to}}}},
		{{Key: "$group", Value: bson.M{
			"_id":           bson.M{"$month": "$startDates"},
			"numTourStarts": bson.M{"$sum": 1},
			"tours":         bson.M{"$push": "$name"},
		}}},
		{{Key: "$addFields", Value: bson.M{"month": "$_id"}}},
		{{Key: "$project", Value: bson.M{"_id": 0}}},
		{{Key: "$sort", Value: bson.D{{Key: "numTourStarts", Value: -1}, {Key: "month", Value: 1}}}},
		{{Key: "$limit", Value: 12}},
	}
	out := []models.MonthlyPlan{}
	return out, s.c.aggregate(ctx, pipeline, &out)
}

// Within finds tours whose start location lies inside a sphere of radius
// (in radians) around lng/lat.
func (s *Tours) Within(ctx context.Context, lng, lat, radius float64) ([]models.Tour, error) {
	filter := bson.M{"startLocation": bson.M{"$geoWithin": bson.M{
		"$centerSphere": bson.A{bson.A{lng, lat}, radius},
	}}}
	return s.c.findWith(ctx, s.c.where(filter), options.Find())
}

// Distances lists every tour with its distance from lng/lat, nearest first.
// multiplier converts meters to the caller's unit.
func (s *Tours) Distances(ctx context.Context, lng, lat, multiplier float64) ([]models.TourDistance, error) {
	pipeline := mongo.Pipeline{
		// $geoNear must be the first stage.
		{{Key: "$geoNear", Value: bson.M{
			"near":               bson.M{"type": "Point", "coordinates": bson.A{lng, lat}},
			"distanceField":      "distance",
			"distanceMultiplier": multiplier,
			"query":              publicTours,
		}}},
		{{Key: "$project", Value: bson.M{"distance": 1, "name": 1}}},
	}
	out := []models.TourDistance{}
	return out, s.c.aggregate(ctx, pipeline, &out)
}
