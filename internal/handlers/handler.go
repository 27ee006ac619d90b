package handlers

import (
	"context"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/tour-booking-api/internal/events"
	"github.com/harentsoaR/tour-booking-api/internal/models"
	"github.com/harentsoaR/tour-booking-api/internal/payments"
	"github.com/harentsoaR/tour-booking-api/internal/services"
	"github.com/harentsoaR/tour-booking-api/internal/store"
)

type UserStore interface {
	Repository[models.User]
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Deactivate(ctx context.Context, id primitive.ObjectID) error
}

type TourStore interface {
	Repository[models.Tour]
	BySlug(ctx context.Context, slug string) (*models.Tour, error)
	ByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Tour, error)
	Stats(ctx context.Context) ([]models.TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]models.MonthlyPlan, error)
	Within(ctx context.Context, lng, lat, radius float64) ([]models.Tour, error)
	Distances(ctx context.Context, lng, lat, multiplier float64) ([]models.TourDistance, error)
}

type BookingStore interface {
	Repository[models.Booking]
	ByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Booking, error)
}

type ImageProcessor interface {
	UserPhoto(ctx context.Context, userID string, r io.Reader) (string, error)
	TourImage(ctx context.Context, tourID string, index int, r io.Reader) (string, error)
}

// Handler holds everything the route handlers need.
type Handler struct {
	Auth  *services.AuthService
	Users UserStore
	// AllUsers also sees deactivated accounts. Admin routes use it.
	AllUsers Repository[models.User]
	Tours    TourStore
	Reviews  Repository[models.Review]
	Bookings BookingStore
	Images   ImageProcessor
	// Payments is nil when no payment provider is configured.
	Payments payments.Provider
	Events   events.Publisher
	Log      *zap.Logger

	Production bool
	CookieTTL  time.Duration

	users    *Resource[models.User]
	tours    *Resource[models.Tour]
	reviews  *Resource[models.Review]
	bookings *Resource[models.Booking]
}

func NewHandler(h Handler) *Handler {
	if h.Events == nil {
		h.Events = events.Nop{}
	}
	if h.Log == nil {
		h.Log = zap.NewNop()
	}
	if h.AllUsers == nil {
		h.AllUsers = h.Users
	}
	h.users = &Resource[models.User]{
		Repo:   h.AllUsers,
		Schema: store.UserSchema,
		Patch:  bindPatch[userPatch],
	}
	h.tours = &Resource[models.Tour]{
		Repo:   h.Tours,
		Schema: store.TourSchema,
		Decode: decodeTour,
		Patch:  bindPatch[tourPatch],
	}
	h.reviews = &Resource[models.Review]{
		Repo:   h.Reviews,
		Schema: store.ReviewSchema,
		Scope:  reviewScope,
		Decode: decodeReview,
		Patch:  bindPatch[reviewPatch],
	}
	h.bookings = &Resource[models.Booking]{
		Repo:   h.Bookings,
		Schema: store.BookingSchema,
		Decode: decodeBooking,
		Patch:  bindPatch[bookingPatch],
	}
	return &h
}
