package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
)

var tourSchema = Schema{
	"price":          Number,
	"duration":       Number,
	"difficulty":     String,
	"ratingsAverage": Number,
	"name":           String,
}

func parse(t *testing.T, raw string) Options {
	t.Helper()
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	opts, err := Parse(values, tourSchema)
	require.NoError(t, err)
	return opts
}

func TestParseFilterOperators(t *testing.T) {
	opts := parse(t, "duration[gte]=5&difficulty=easy&price[lt]=1500&price[gte]=500")

	assert.Equal(t, bson.M{
		"duration":   bson.M{"$gte": 5.0},
		"difficulty": "easy",
		"price":      bson.M{"$lt": 1500.0, "$gte": 500.0},
	}, opts.Filter)
}

func TestParseIgnoresUnknownAndOperatorInjection(t *testing.T) {
	opts := parse(t, "secretTour=true&password[ne]=x&$where=1&name[regex]=.*")
	assert.Empty(t, opts.Filter)
}

func TestParseRepeatedParams(t *testing.T) {
	opts := parse(t, "difficulty=easy&difficulty=medium&name=a&name=b")

	assert.Equal(t, bson.M{"$in": bson.A{"easy", "medium"}}, opts.Filter["difficulty"])
	assert.Equal(t, "b", opts.Filter["name"], "non-whitelisted keeps the last value")
}

func TestParseInvalidNumber(t *testing.T) {
	values, _ := url.ParseQuery("price[gte]=cheap")
	_, err := Parse(values, tourSchema)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestParseSort(t *testing.T) {
	opts := parse(t, "sort=-price,ratingsAverage")
	assert.Equal(t, bson.D{
		{Key: "price", Value: -1},
		{Key: "ratingsAverage", Value: 1},
		{Key: "_id", Value: 1},
	}, opts.Sort)

	opts = parse(t, "")
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}, opts.Sort)
}

func TestParseFields(t *testing.T) {
	assert.Equal(t, bson.M{"name": 1, "price": 1}, parse(t, "fields=name,price").Projection)
	assert.Equal(t, bson.M{"description": 0}, parse(t, "fields=-description").Projection)
	assert.Nil(t, parse(t, "").Projection)
}

func TestParsePaging(t *testing.T) {
	opts := parse(t, "page=3&limit=10")
	assert.Equal(t, int64(20), opts.Skip)
	assert.Equal(t, int64(10), opts.Limit)

	opts = parse(t, "")
	assert.Equal(t, int64(0), opts.Skip)
	assert.Equal(t, int64(DefaultLimit), opts.Limit)

	opts = parse(t, "limit=100000")
	assert.Equal(t, int64(MaxLimit), opts.Limit)

	values, _ := url.ParseQuery("page=0")
	_, err := Parse(values, tourSchema)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestParsePagingRejectsOverflowingSkip(t *testing.T) {
	values, _ := url.ParseQuery("page=9223372036854775807&limit=10")
	_, err := Parse(values, tourSchema)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	values, _ = url.ParseQuery("page=922337203685477581&limit=10")
	opts, err := Parse(values, tourSchema)
	require.NoError(t, err)
	assert.Equal(t, int64(9223372036854775800), opts.Skip)
}
