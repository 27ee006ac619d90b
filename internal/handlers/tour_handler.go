package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
	"github.com/harentsoaR/tour-booking-api/internal/models"
)

const (
	maxTourImages = 3

	earthRadiusMi = 3963.2
	earthRadiusKm = 6378.1
	metersToMi    = 0.000621371
	metersToKm    = 0.001
)

type tourInput struct {
	Name          string            `json:"name" binding:"required,min=10,max=40"`
	Duration      int               `json:"duration" binding:"required,gt=0"`
	MaxGroupSize  int               `json:"maxGroupSize" binding:"required,gt=0"`
	Difficulty    string            `json:"difficulty" binding:"required,oneof=easy medium difficult"`
	Price         float64           `json:"price" binding:"required,gt=0"`
	PriceDiscount float64           `json:"priceDiscount" binding:"omitempty,ltfield=Price"`
	Summary       string            `json:"summary" binding:"required"`
	Description   string            `json:"description"`
	ImageCover    string            `json:"imageCover" binding:"required"`
	Images        []string          `json:"images"`
	StartDates    []time.Time       `json:"startDates"`
	SecretTour    bool              `json:"secretTour"`
	StartLocation *models.Location  `json:"startLocation"`
	Locations     []models.Location `json:"locations"`
	Guides        []string          `json:"guides"`
}

type tourPatch struct {
	Name          *string            `json:"name" form:"name" binding:"omitempty,min=10,max=40"`
	Duration      *int               `json:"duration" form:"duration" binding:"omitempty,gt=0"`
	MaxGroupSize  *int               `json:"maxGroupSize" form:"maxGroupSize" binding:"omitempty,gt=0"`
	Difficulty    *string            `json:"difficulty" form:"difficulty" binding:"omitempty,oneof=easy medium difficult"`
	Price         *float64           `json:"price" form:"price" binding:"omitempty,gt=0"`
	PriceDiscount *float64           `json:"priceDiscount" form:"priceDiscount" binding:"omitempty,gte=0"`
	Summary       *string            `json:"summary" form:"summary"`
	Description   *string            `json:"description" form:"description"`
	StartDates    *[]time.Time       `json:"startDates" form:"-"`
	SecretTour    *bool              `json:"secretTour" form:"secretTour"`
	StartLocation *models.Location   `json:"startLocation" form:"-"`
	Locations     *[]models.Location `json:"locations" form:"-"`
	Guides        *[]string          `json:"guides" form:"-"`
}

func (p *tourPatch) fields() bson.M {
	m := bson.M{}
	set(m, "name", p.Name)
	set(m, "duration", p.Duration)
	set(m, "maxGroupSize", p.MaxGroupSize)
	set(m, "difficulty", p.Difficulty)
	set(m, "price", p.Price)
	set(m, "priceDiscount", p.PriceDiscount)
	set(m, "summary", p.Summary)
	set(m, "description", p.Description)
	set(m, "startDates", p.StartDates)
	set(m, "secretTour", p.SecretTour)
	set(m, "startLocation", p.StartLocation)
	set(m, "locations", p.Locations)
	return m
}

func objectIDs(hexes []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "Invalid _id: "+h+".", err)
		}
		out = append(out, id)
	}
	return out, nil
}

func decodeTour(c *gin.Context) (*models.Tour, error) {
	var in tourInput
	if err := c.ShouldBindJSON(&in); err != nil {
		return nil, err
	}
	guides, err := objectIDs(in.Guides)
	if err != nil {
		return nil, err
	}
	return &models.Tour{
		Name:          strings.TrimSpace(in.Name),
		Duration:      in.Duration,
		MaxGroupSize:  in.MaxGroupSize,
		Difficulty:    in.Difficulty,
		Price:         in.Price,
		PriceDiscount: in.PriceDiscount,
		Summary:       strings.TrimSpace(in.Summary),
		Description:   strings.TrimSpace(in.Description),
		ImageCover:    in.ImageCover,
		Images:        in.Images,
		StartDates:    in.StartDates,
		SecretTour:    in.SecretTour,
		StartLocation: in.StartLocation,
		Locations:     in.Locations,
		GuideIDs:      guides,
	}, nil
}

func (h *Handler) GetTours(c *gin.Context)   { h.tours.List(c) }
func (h *Handler) GetTour(c *gin.Context)    { h.tours.Get(c) }
func (h *Handler) CreateTour(c *gin.Context) { h.tours.Create(c) }
func (h *Handler) DeleteTour(c *gin.Context) { h.tours.Delete(c) }

// UpdateTour accepts JSON, or a multipart form carrying an imageCover and up
// to three images next to plain fields.
func (h *Handler) UpdateTour(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	multipart := isMultipart(c)
	if multipart {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	}

	var p tourPatch
	if err := c.ShouldBind(&p); err != nil {
		abort(c, err)
		return
	}
	fields := p.fields()
	if p.Guides != nil {
		guides, err := objectIDs(*p.Guides)
		if err != nil {
			abort(c, err)
			return
		}
		fields["guides"] = guides
	}
	if multipart {
		if err := h.tourUploads(c, id, fields); err != nil {
			abort(c, err)
			return
		}
	}
	if len(fields) == 0 {
		abort(c, apperr.Validation("No update fields provided"))
		return
	}

	tour, err := h.Tours.Update(c.Request.Context(), id, fields)
	if err != nil {
		abort(c, err)
		return
	}
	respondOne(c, http.StatusOK, tour)
}

func (h *Handler) tourUploads(c *gin.Context, id primitive.ObjectID, fields bson.M) error {
	form, err := c.MultipartForm()
	if err != nil {
		return err
	}
	ctx := c.Request.Context()

	if covers := form.File["imageCover"]; len(covers) > 0 {
		src, err := covers[0].Open()
		if err != nil {
			return err
		}
		defer src.Close()
		name, err := h.Images.TourImage(ctx, id.Hex(), 0, src)
		if err != nil {
			return err
		}
		fields["imageCover"] = name
	}

	files := form.File["images"]
	if len(files) > maxTourImages {
		return apperr.Validation(fmt.Sprintf("Invalid input data. At most %d images are allowed", maxTourImages))
	}
	if len(files) > 0 {
		names := make([]string, 0, len(files))
		for i, fh := range files {
			src, err := fh.Open()
			if err != nil {
				return err
			}
			name, err := h.Images.TourImage(ctx, id.Hex(), i+1, src)
			src.Close()
			if err != nil {
				return err
			}
			names = append(names, name)
		}
		fields["images"] = names
	}
	return nil
}

// AliasTopTours rewrites the query to the five best cheap tours.
func (h *Handler) AliasTopTours(c *gin.Context) {
	q := c.Request.URL.Query()
	q.Set("limit", "5")
	q.Set("sort", "-ratingsAverage,price")
	q.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	c.Request.URL.RawQuery = q.Encode()
	c.Next()
}

func (h *Handler) GetTourStats(c *gin.Context) {
	stats, err := h.Tours.Stats(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusSuccess, "data": gin.H{"stats": stats}})
}

func (h *Handler) GetMonthlyPlan(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1 {
		abort(c, apperr.Validation("Invalid year: "+c.Param("year")))
		return
	}
	plan, err := h.Tours.MonthlyPlan(c.Request.Context(), year)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusSuccess, "data": gin.H{"plan": plan}})
}

var errLatLng = apperr.Validation("Please provide latitude and longitude in the format lat,lng.")

func parseLatLng(raw string) (lat, lng float64, err error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, errLatLng
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err := errors.Join(err1, err2); err != nil {
		return 0, 0, apperr.Wrap(apperr.KindValidation, errLatLng.Message, err)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, errLatLng
	}
	return lat, lng, nil
}

func parseUnit(raw string) (string, error) {
	switch raw {
	case "mi", "km":
		return raw, nil
	default:
		return "", apperr.Validation("Unit must be either mi or km.")
	}
}

// GetToursWithin lists tours starting within distance of a point.
func (h *Handler) GetToursWithin(c *gin.Context) {
	distance, err := strconv.ParseFloat(c.Param("distance"), 64)
	if err != nil || distance < 0 {
		abort(c, apperr.Validation("Invalid distance: "+c.Param("distance")))
		return
	}
	lat, lng, err := parseLatLng(c.Param("latlng"))
	if err != nil {
		abort(c, err)
		return
	}
	unit, err := parseUnit(c.Param("unit"))
	if err != nil {
		abort(c, err)
		return
	}
	radius := distance / earthRadiusKm
	if unit == "mi" {
		radius = distance / earthRadiusMi
	}

	tours, err := h.Tours.Within(c.Request.Context(), lng, lat, radius)
	if err != nil {
		abort(c, err)
		return
	}
	respondList(c, tours)
}

func (h *Handler) GetDistances(c *gin.Context) {
	lat, lng, err := parseLatLng(c.Param("latlng"))
	if err != nil {
		abort(c, err)
		return
	}
	unit, err := parseUnit(c.Param("unit"))
	if err != nil {
		abort(c, err)
		return
	}
	multiplier := metersToKm
	if unit == "mi" {
		multiplier = metersToMi
	}

	distances, err := h.Tours.Distances(c.Request.Context(), lng, lat, multiplier)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusSuccess, "data": gin.H{"data": distances}})
}
