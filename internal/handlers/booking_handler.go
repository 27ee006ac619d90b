package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
	"github.com/harentsoaR/tour-booking-api/internal/events"
	"github.com/harentsoaR/tour-booking-api/internal/middleware"
	"github.com/harentsoaR/tour-booking-api/internal/models"
	"github.com/harentsoaR/tour-booking-api/internal/payments"
)

const maxWebhookBytes = 64 << 10

type bookingInput struct {
	Tour  string  `json:"tour" binding:"required"`
	User  string  `json:"user" binding:"required"`
	Price float64 `json:"price" binding:"required,gt=0"`
	Paid  *bool   `json:"paid"`
}

type bookingPatch struct {
	Price *float64 `json:"price" binding:"omitempty,gt=0"`
	Paid  *bool    `json:"paid"`
}

func (p *bookingPatch) fields() bson.M {
	m := bson.M{}
	set(m, "price", p.Price)
	set(m, "paid", p.Paid)
	return m
}

func decodeBooking(c *gin.Context) (*models.Booking, error) {
	var in bookingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		return nil, err
	}
	ids, err := objectIDs([]string{in.Tour, in.User})
	if err != nil {
		return nil, err
	}
	paid := true
	if in.Paid != nil {
		paid = *in.Paid
	}
	return &models.Booking{TourID: ids[0], UserID: ids[1], Price: in.Price, Paid: paid}, nil
}

func (h *Handler) GetBookings(c *gin.Context)   { h.bookings.List(c) }
func (h *Handler) GetBooking(c *gin.Context)    { h.bookings.Get(c) }
func (h *Handler) CreateBooking(c *gin.Context) { h.bookings.Create(c) }
func (h *Handler) UpdateBooking(c *gin.Context) { h.bookings.Update(c) }
func (h *Handler) DeleteBooking(c *gin.Context) { h.bookings.Delete(c) }

// GetCheckoutSession starts a hosted checkout for one tour.
func (h *Handler) GetCheckoutSession(c *gin.Context) {
	if h.Payments == nil {
		abort(c, apperr.Internal("Payments are not configured", nil))
		return
	}
	id, ok := objectID(c, "tourId")
	if !ok {
		return
	}
	tour, err := h.Tours.Get(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}

	base := baseURL(c)
	session, err := h.Payments.CreateCheckoutSession(c.Request.Context(), payments.CheckoutRequest{
		TourID:        tour.ID.Hex(),
		TourName:      tour.Name,
		Summary:       tour.Summary,
		ImageURL:      base + "/img/tours/" + tour.ImageCover,
		Price:         tour.Price,
		CustomerEmail: middleware.CurrentUser(c).Email,
		SuccessURL:    base + "/my-tours?alert=booking",
		CancelURL:     base + "/tour/" + tour.Slug,
	})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusSuccess, "session": session})
}

// WebhookCheckout records a paid booking for every completed checkout. It
// answers in plain text because the caller is the payment provider.
func (h *Handler) WebhookCheckout(c *gin.Context) {
	if h.Payments == nil {
		c.String(http.StatusNotFound, "Webhook not configured")
		return
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.String(http.StatusBadRequest, "Webhook error: unreadable body")
		return
	}
	done, err := h.Payments.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		c.String(apperr.KindOf(err).Status(), err.Error())
		return
	}
	if done != nil {
		if err := h.bookCheckout(c, done); err != nil {
			h.Log.Error("record checkout", zap.String("session", done.SessionID), zap.Error(err))
			c.String(apperr.KindOf(err).Status(), "Webhook error: booking not recorded")
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) bookCheckout(c *gin.Context, done *payments.CompletedCheckout) error {
	ctx := c.Request.Context()
	tourID, err := primitive.ObjectIDFromHex(done.TourID)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "Invalid _id: "+done.TourID+".", err)
	}
	user, err := h.Users.FindByEmail(ctx, done.CustomerEmail)
	if err != nil {
		return err
	}
	booking := &models.Booking{TourID: tourID, UserID: user.ID, Price: done.Price(), Paid: true}
	if err := h.Bookings.Create(ctx, booking); err != nil {
		return err
	}

	evt := events.BookingPaid{
		BookingID: booking.ID.Hex(),
		TourID:    tourID.Hex(),
		UserID:    user.ID.Hex(),
		Price:     booking.Price,
	}
	if err := h.Events.PublishJSON(ctx, events.RKBookingPaid, evt); err != nil {
		h.Log.Warn("publish booking paid", zap.String("booking", booking.ID.Hex()), zap.Error(err))
	}
	return nil
}
