package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
	"github.com/harentsoaR/tour-booking-api/internal/middleware"
	"github.com/harentsoaR/tour-booking-api/internal/models"
	"github.com/harentsoaR/tour-booking-api/internal/query"
)

const bookingAlert = "Your booking was successful! Please check your email for a confirmation. " +
	"If your booking doesn't show up here immediately, please come back later."

func (h *Handler) render(c *gin.Context, name string, data gin.H) {
	data["user"] = middleware.CurrentUser(c)
	if c.Query("alert") == "booking" {
		data["alert"] = bookingAlert
	}
	c.HTML(http.StatusOK, name, data)
}

func (h *Handler) Overview(c *gin.Context) {
	opts, err := query.Parse(nil, nil)
	if err != nil {
		abort(c, err)
		return
	}
	tours, err := h.Tours.List(c.Request.Context(), opts, nil)
	if err != nil {
		abort(c, err)
		return
	}
	h.render(c, "overview.html", gin.H{"title": "All Tours", "tours": tours})
}

func (h *Handler) TourPage(c *gin.Context) {
	tour, err := h.Tours.BySlug(c.Request.Context(), c.Param("slug"))
	if apperr.Is(err, apperr.KindNotFound) {
		abort(c, apperr.NotFound("There is no tour with that name."))
		return
	}
	if err != nil {
		abort(c, err)
		return
	}
	h.render(c, "tour.html", gin.H{"title": tour.Name + " Tour", "tour": tour})
}

func (h *Handler) LoginPage(c *gin.Context) {
	h.render(c, "login.html", gin.H{"title": "Log into your account"})
}

func (h *Handler) AccountPage(c *gin.Context) {
	h.render(c, "account.html", gin.H{"title": "Your account"})
}

// MyToursPage lists the tours the caller has booked.
func (h *Handler) MyToursPage(c *gin.Context) {
	me := middleware.CurrentUser(c)
	bookings, err := h.Bookings.ByUser(c.Request.Context(), me.ID)
	if err != nil {
		abort(c, err)
		return
	}
	ids := make([]primitive.ObjectID, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.TourID)
	}
	tours := []models.Tour{}
	if len(ids) > 0 {
		if tours, err = h.Tours.ByIDs(c.Request.Context(), ids); err != nil {
			abort(c, err)
			return
		}
	}
	h.render(c, "overview.html", gin.H{"title": "My Tours", "tours": tours})
}
