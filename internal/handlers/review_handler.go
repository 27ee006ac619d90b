package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
	"github.com/harentsoaR/tour-booking-api/internal/middleware"
	"github.com/harentsoaR/tour-booking-api/internal/models"
)

type reviewInput struct {
	Review string  `json:"review" binding:"required"`
	Rating float64 `json:"rating" binding:"required,min=1,max=5"`
	Tour   string  `json:"tour"`
	User   string  `json:"user"`
}

type reviewPatch struct {
	Review *string  `json:"review"`
	Rating *float64 `json:"rating" binding:"omitempty,min=1,max=5"`
}

func (p *reviewPatch) fields() bson.M {
	m := bson.M{}
	set(m, "review", p.Review)
	set(m, "rating", p.Rating)
	return m
}

// tourParam reads the tour id of a nested /tours/:id/reviews route.
func tourParam(c *gin.Context) (primitive.ObjectID, bool, error) {
	raw := c.Param("id")
	if raw == "" {
		return primitive.NilObjectID, false, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, false, apperr.Wrap(apperr.KindValidation, "Invalid _id: "+raw+".", err)
	}
	return id, true, nil
}

func reviewScope(c *gin.Context) (bson.M, error) {
	id, nested, err := tourParam(c)
	if err != nil || !nested {
		return nil, err
	}
	return bson.M{"tour": id}, nil
}

// decodeReview takes the tour from a nested route and the author from the
// caller unless the body names them.
func decodeReview(c *gin.Context) (*models.Review, error) {
	var in reviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		return nil, err
	}
	r := &models.Review{Review: strings.TrimSpace(in.Review), Rating: in.Rating}

	tourID, nested, err := tourParam(c)
	if err != nil {
		return nil, err
	}
	if !nested {
		if in.Tour == "" {
			return nil, apperr.Validation("Invalid input data. Review must belong to a tour")
		}
		if tourID, err = primitive.ObjectIDFromHex(in.Tour); err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "Invalid _id: "+in.Tour+".", err)
		}
	}
	r.TourID = tourID

	if in.User != "" {
		if r.UserID, err = primitive.ObjectIDFromHex(in.User); err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "Invalid _id: "+in.User+".", err)
		}
	} else if me := middleware.CurrentUser(c); me != nil {
		r.UserID = me.ID
	}
	return r, nil
}

func (h *Handler) GetReviews(c *gin.Context)   { h.reviews.List(c) }
func (h *Handler) GetReview(c *gin.Context)    { h.reviews.Get(c) }
func (h *Handler) CreateReview(c *gin.Context) { h.reviews.Create(c) }
func (h *Handler) UpdateReview(c *gin.Context) { h.reviews.Update(c) }
func (h *Handler) DeleteReview(c *gin.Context) { h.reviews.Delete(c) }
