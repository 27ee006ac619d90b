// Package query turns list-endpoint query strings into MongoDB find options.
package query

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
)

type FieldType int

const (
	String FieldType = iota
	Number
	Bool
	Date
	ObjectID
)

// Schema lists the filterable fields of a resource and their types. Query
// parameters naming any other field are ignored.
type Schema map[string]FieldType

const (
	DefaultLimit = 100
	MaxLimit     = 1000
	DefaultSort  = "-createdAt"
)

// Options is the parsed form of a list request.
type Options struct {
	Filter     bson.M
	Sort       bson.D
	Projection bson.M
	Skip       int64
	Limit      int64
}

var reserved = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}

var operatorKey = regexp.MustCompile(`^(\w+)\[(gte|gt|lte|lt|ne)\]$`)

// Whitelist is the set of fields for which a repeated parameter means "any of".
// Every other repeated parameter keeps its last value.
var Whitelist = map[string]bool{
	"duration":        true,
	"ratingsQuantity": true,
	"ratingsAverage":  true,
	"maxGroupSize":    true,
	"difficulty":      true,
	"price":           true,
}

func Parse(values url.Values, schema Schema) (Options, error) {
	opts := Options{Filter: bson.M{}}

	for key, vals := range values {
		if reserved[key] || len(vals) == 0 {
			continue
		}

		field, op := key, ""
		if m := operatorKey.FindStringSubmatch(key); m != nil {
			field, op = m[1], m[2]
		}
		typ, ok := schema[field]
		if !ok {
			continue
		}

		if op == "" {
			if len(vals) > 1 && Whitelist[field] {
				in := make(bson.A, 0, len(vals))
				for _, raw := range vals {
					v, err := convert(field, raw, typ)
					if err != nil {
						return Options{}, err
					}
					in = append(in, v)
				}
				mergeOperator(opts.Filter, field, "$in", in)
				continue
			}
			v, err := convert(field, vals[len(vals)-1], typ)
			if err != nil {
				return Options{}, err
			}
			if existing, ok := opts.Filter[field].(bson.M); ok {
				existing["$eq"] = v
			} else {
				opts.Filter[field] = v
			}
			continue
		}

		v, err := convert(field, vals[len(vals)-1], typ)
		if err != nil {
			return Options{}, err
		}
		mergeOperator(opts.Filter, field, "$"+op, v)
	}

	opts.Sort = parseSort(values.Get("sort"))
	opts.Projection = parseFields(values.Get("fields"))

	page, limit, err := parsePaging(values)
	if err != nil {
		return Options{}, err
	}
	opts.Skip = (page - 1) * limit
	opts.Limit = limit

	return opts, nil
}

func mergeOperator(filter bson.M, field, op string, v any) {
	switch cur := filter[field].(type) {
	case bson.M:
		cur[op] = v
	case nil:
		filter[field] = bson.M{op: v}
	default:
		filter[field] = bson.M{"$eq": cur, op: v}
	}
}

func convert(field, raw string, typ FieldType) (any, error) {
	switch typ {
	case Number:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperr.Newf(apperr.KindValidation, "Invalid %s: %s", field, raw)
		}
		return f, nil
	case Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, apperr.Newf(apperr.KindValidation, "Invalid %s: %s", field, raw)
		}
		return b, nil
	case Date:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
		return nil, apperr.Newf(apperr.KindValidation, "Invalid %s: %s", field, raw)
	case ObjectID:
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, apperr.Newf(apperr.KindValidation, "Invalid %s: %s", field, raw)
		}
		return id, nil
	default:
		return raw, nil
	}
}

func parseSort(raw string) bson.D {
	if strings.TrimSpace(raw) == "" {
		raw = DefaultSort
	}
	var sort bson.D
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dir := 1
		if strings.HasPrefix(part, "-") {
			dir = -1
			part = part[1:]
		}
		if part == "" || strings.HasPrefix(part, "$") {
			continue
		}
		sort = append(sort, bson.E{Key: part, Value: dir})
	}
	// A stable tiebreaker keeps pagination deterministic.
	return append(sort, bson.E{Key: "_id", Value: 1})
}

func parseFields(raw string) bson.M {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	include, exclude := bson.M{}, bson.M{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "", strings.HasPrefix(part, "$"):
		case strings.HasPrefix(part, "-"):
			exclude[part[1:]] = 0
		default:
			include[part] = 1
		}
	}
	// MongoDB rejects mixed inclusion and exclusion; inclusion wins.
	if len(include) > 0 {
		return include
	}
	if len(exclude) > 0 {
		return exclude
	}
	return nil
}

func parsePaging(values url.Values) (page, limit int64, err error) {
	page, limit = 1, DefaultLimit
	if raw := values.Get("page"); raw != "" {
		page, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || page < 1 {
			return 0, 0, apperr.Validation(fmt.Sprintf("Invalid page: %s", raw))
		}
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || limit < 1 {
			return 0, 0, apperr.Validation(fmt.Sprintf("Invalid limit: %s", raw))
		}
		if limit > MaxLimit {
			limit = MaxLimit
		}
	}
	// The skip (page-1)*limit must fit in an int64.
	if page-1 > math.MaxInt64/limit {
		return 0, 0, apperr.Validation(fmt.Sprintf("Invalid page: %s", values.Get("page")))
	}
	return page, limit, nil
}
