package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
	"github.com/harentsoaR/tour-booking-api/internal/events"
	"github.com/harentsoaR/tour-booking-api/internal/handlers"
	"github.com/harentsoaR/tour-booking-api/internal/middleware"
	"github.com/harentsoaR/tour-booking-api/internal/models"
	"github.com/harentsoaR/tour-booking-api/internal/payments"
	"github.com/harentsoaR/tour-booking-api/internal/services"
	"github.com/harentsoaR/tour-booking-api/internal/store/storetest"
	"github.com/harentsoaR/tour-booking-api/internal/utils"
	"github.com/harentsoaR/tour-booking-api/internal/views"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePayments struct {
	completed *payments.CompletedCheckout
	last      payments.CheckoutRequest
}

func (f *fakePayments) CreateCheckoutSession(_ context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	f.last = req
	return &payments.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}, nil
}

func (f *fakePayments) ParseWebhook(_ []byte, signature string) (*payments.CompletedCheckout, error) {
	if signature != "valid" {
		return nil, apperr.InvalidInput("Webhook error: invalid signature")
	}
	return f.completed, nil
}

type fakeImages struct{}

func (fakeImages) UserPhoto(_ context.Context, userID string, _ io.Reader) (string, error) {
	return "users/user-" + userID + ".jpeg", nil
}

func (fakeImages) TourImage(_ context.Context, tourID string, index int, _ io.Reader) (string, error) {
	return "tours/tour-" + tourID + ".jpeg", nil
}

type harness struct {
	r         *gin.Engine
	tokens    *utils.TokenManager
	users     *storetest.Users
	tours     *storetest.Tours
	reviews   *storetest.Reviews
	bookings  *storetest.Bookings
	outbox    *storetest.Outbox
	publisher *storetest.Publisher
	payments  *fakePayments
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		tokens:    utils.NewTokenManager("test-secret", time.Hour),
		users:     storetest.NewUsers(),
		tours:     storetest.NewTours(),
		reviews:   storetest.NewReviews(),
		bookings:  storetest.NewBookings(),
		outbox:    &storetest.Outbox{},
		publisher: &storetest.Publisher{},
		payments:  &fakePayments{},
	}
	log := zap.NewNop()
	auth := services.NewAuthService(h.users, h.tokens, services.NewNotificationService(h.outbox), log).
		WithPasswordCost(bcrypt.MinCost)
	agg := services.NewAggregator(h.reviews, h.tours, services.NewKeyedMutex())

	handler := handlers.NewHandler(handlers.Handler{
		Auth:       auth,
		Users:      h.users,
		Tours:      h.tours,
		Reviews:    services.NewReviewService(h.reviews, agg, h.publisher, log),
		Bookings:   h.bookings,
		Images:     fakeImages{},
		Payments:   h.payments,
		Events:     h.publisher,
		Log:        log,
		Production: true,
		CookieTTL:  90 * 24 * time.Hour,
	})

	tmpl, err := views.Templates()
	require.NoError(t, err)
	h.r = gin.New()
	h.r.SetHTMLTemplate(tmpl)
	RegisterRoutes(h.r, handler, log, Options{
		Production:     true,
		CORSOrigins:    []string{"http://localhost:8080"},
		BodyLimitBytes: 10 << 10,
	})
	return h
}

// user stores an account with role and returns it with a session token.
func (h *harness) user(t *testing.T, email, role string) (*models.User, string) {
	t.Helper()
	hash, err := utils.HashPassword("pass1234", bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Name: "Test " + role, Email: email, Password: hash, Role: role}
	require.NoError(t, h.users.Create(context.Background(), u))
	token, err := h.tokens.GenerateJWT(u.ID.Hex())
	require.NoError(t, err)
	return u, token
}

func (h *harness) tour(t *testing.T, name string, secret bool) *models.Tour {
	t.Helper()
	tour := &models.Tour{Name: name, Duration: 5, MaxGroupSize: 10, Difficulty: models.DifficultyEasy,
		Price: 397, Summary: "Breathtaking hike", ImageCover: "tour-1-cover.jpg", SecretTour: secret}
	require.NoError(t, h.tours.Create(context.Background(), tour))
	return tour
}

type request struct {
	method, path, body, token string
	header                    map[string]string
}

func (h *harness) do(req request) *httptest.ResponseRecorder {
	r := httptest.NewRequest(req.method, req.path, strings.NewReader(req.body))
	if req.body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}
	for k, v := range req.header {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, r)
	return w
}

func body(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSignupSetsCookieAndHidesPassword(t *testing.T) {
	h := newHarness(t)
	w := h.do(request{method: http.MethodPost, path: "/api/v1/users/signup",
		body: `{"name":"Laura Wilson","email":"laura@example.com","password":"pass1234","passwordConfirm":"pass1234","role":"admin"}`})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	out := body(t, w)
	assert.Equal(t, "success", out["status"])
	assert.NotEmpty(t, out["token"])
	assert.NotContains(t, w.Body.String(), "password")

	user := out["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, models.RoleUser, user["role"], "signup never grants a role")

	c := cookieNamed(w, middleware.CookieName)
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, out["token"], c.Value)
}

func TestLoginFailure(t *testing.T) {
	h := newHarness(t)
	h.user(t, "known@example.com", models.RoleUser)

	w := h.do(request{method: http.MethodPost, path: "/api/v1/users/login",
		body: `{"email":"known@example.com","password":"wrong-password"}`})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, map[string]any{"status": "fail", "message": "Incorrect email or password"}, body(t, w))

	w = h.do(request{method: http.MethodPost, path: "/api/v1/users/login",
		body: `{"email":"known@example.com","password":"pass1234"}`})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutReplacesCookie(t *testing.T) {
	h := newHarness(t)
	w := h.do(request{method: http.MethodGet, path: "/api/v1/users/logout"})

	assert.Equal(t, http.StatusOK, w.Code)
	c := cookieNamed(w, middleware.CookieName)
	require.NotNil(t, c)
	assert.Equal(t, middleware.LoggedOutValue, c.Value)
	assert.Equal(t, 10, c.MaxAge)
}

func TestMeRequiresSession(t *testing.T) {
	h := newHarness(t)
	u, token := h.user(t, "me@example.com", models.RoleUser)

	w := h.do(request{method: http.MethodGet, path: "/api/v1/users/me"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(request{method: http.MethodGet, path: "/api/v1/users/me", header: map[string]string{
		"Cookie": middleware.CookieName + "=" + token,
	}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, u.ID.Hex(), body(t, w)["data"].(map[string]any)["data"].(map[string]any)["id"])
}

func TestUpdateMeRejectsPassword(t *testing.T) {
	h := newHarness(t)
	_, token := h.user(t, "me@example.com", models.RoleUser)

	w := h.do(request{method: http.MethodPatch, path: "/api/v1/users/updateMe", token: token,
		body: `{"password":"newpass123","passwordConfirm":"newpass123"}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "This route is not for password updates. Please use /updatePassword.", body(t, w)["message"])

	w = h.do(request{method: http.MethodPatch, path: "/api/v1/users/updateMe", token: token,
		body: `{"name":"New Name"}`})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "New Name", body(t, w)["data"].(map[string]any)["user"].(map[string]any)["name"])
}

func TestDeleteMeDeactivates(t *testing.T) {
	h := newHarness(t)
	u, token := h.user(t, "bye@example.com", models.RoleUser)

	w := h.do(request{method: http.MethodDelete, path: "/api/v1/users/deleteMe", token: token})
	assert.Equal(t, http.StatusNoContent, w.Code)

	stored, ok := h.users.Raw(u.ID)
	require.True(t, ok, "deactivation keeps the record")
	assert.False(t, stored.Active)

	w = h.do(request{method: http.MethodGet, path: "/api/v1/users/me", token: token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminUserRoutes(t *testing.T) {
	h := newHarness(t)
	_, userToken := h.user(t, "u@example.com", models.RoleUser)
	_, adminToken := h.user(t, "a@example.com", models.RoleAdmin)

	assert.Equal(t, http.StatusForbidden, h.do(request{method: http.MethodGet, path: "/api/v1/users", token: userToken}).Code)

	w := h.do(request{method: http.MethodGet, path: "/api/v1/users", token: adminToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body(t, w)["results"])

	w = h.do(request{method: http.MethodPost, path: "/api/v1/users", token: adminToken, body: `{}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "This route is not defined! Please use /signup instead", body(t, w)["message"])
}

func TestTourMutationsRequireRole(t *testing.T) {
	h := newHarness(t)
	_, userToken := h.user(t, "u@example.com", models.RoleUser)
	_, leadToken := h.user(t, "lead@example.com", models.RoleLeadGuide)
	payload := `{"name":"The Snow Adventurer","duration":4,"maxGroupSize":10,"difficulty":"difficult",` +
		`"price":997,"summary":"Exciting adventure in the snow","imageCover":"tour-3-cover.jpg"}`

	w := h.do(request{method: http.MethodPost, path: "/api/v1/tours", token: userToken, body: payload})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(request{method: http.MethodPost, path: "/api/v1/tours", token: leadToken, body: payload})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tour := body(t, w)["data"].(map[string]any)["data"].(map[string]any)
	assert.Equal(t, "the-snow-adventurer", tour["slug"])
	assert.EqualValues(t, 4.5, tour["ratingsAverage"])
	assert.EqualValues(t, 0, tour["ratingsQuantity"])
}

func TestTourValidation(t *testing.T) {
	h := newHarness(t)
	_, token := h.user(t, "admin@example.com", models.RoleAdmin)

	w := h.do(request{method: http.MethodPost, path: "/api/v1/tours", token: token,
		body: `{"name":"Short","duration":4,"maxGroupSize":10,"difficulty":"extreme","price":100,"priceDiscount":200,"summary":"s","imageCover":"c.jpg"}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body(t, w)["message"], "Invalid input data.")
}

func TestSecretToursAreHidden(t *testing.T) {
	h := newHarness(t)
	secret := h.tour(t, "The Secret Hideaway", true)
	h.tour(t, "The Forest Hiker", false)

	w := h.do(request{method: http.MethodGet, path: "/api/v1/tours/" + secret.ID.Hex()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(request{method: http.MethodGet, path: "/api/v1/tours"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body(t, w)["results"])
}

func TestInvalidObjectID(t *testing.T) {
	h := newHarness(t)
	w := h.do(request{method: http.MethodGet, path: "/api/v1/tours/not-an-id"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid _id: not-an-id.", body(t, w)["message"])
}

func TestGeoParamsValidated(t *testing.T) {
	h := newHarness(t)
	w := h.do(request{method: http.MethodGet, path: "/api/v1/tours/tours-within/200/center/34.1,-118.1/unit/mi"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(request{method: http.MethodGet, path: "/api/v1/tours/distances/nonsense/unit/km"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(request{method: http.MethodGet, path: "/api/v1/tours/distances/34.1,-118.1/unit/ly"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNestedReviewsDriveRatings(t *testing.T) {
	h := newHarness(t)
	tour := h.tour(t, "The Sea Explorer", false)
	_, userToken := h.user(t, "u@example.com", models.RoleUser)
	_, adminToken := h.user(t, "a@example.com", models.RoleAdmin)
	path := "/api/v1/tours/" + tour.ID.Hex() + "/reviews"

	w := h.do(request{method: http.MethodPost, path: path, token: adminToken, body: `{"review":"Nice","rating":4}`})
	assert.Equal(t, http.StatusForbidden, w.Code, "only role user may review")

	w = h.do(request{method: http.MethodPost, path: path, token: userToken, body: `{"review":"Loved it","rating":4}`})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reviewID := body(t, w)["data"].(map[string]any)["data"].(map[string]any)["id"].(string)

	stored, _ := h.tours.Raw(tour.ID)
	assert.Equal(t, 1, stored.RatingsQuantity)
	assert.Equal(t, 4.0, stored.RatingsAverage)

	w = h.do(request{method: http.MethodPost, path: path, token: userToken, body: `{"review":"Again","rating":1}`})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(request{method: http.MethodGet, path: path, token: userToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body(t, w)["results"])

	w = h.do(request{method: http.MethodDelete, path: "/api/v1/reviews/" + reviewID, token: adminToken})
	assert.Equal(t, http.StatusNoContent, w.Code)

	stored, _ = h.tours.Raw(tour.ID)
	assert.Equal(t, 0, stored.RatingsQuantity)
	assert.Equal(t, models.DefaultRatingsAverage, stored.RatingsAverage)
	assert.Contains(t, h.publisher.Published(), events.RKReviewChanged)
}

func TestReviewRatingOutOfRange(t *testing.T) {
	h := newHarness(t)
	tour := h.tour(t, "The Sea Explorer", false)
	_, token := h.user(t, "u@example.com", models.RoleUser)

	w := h.do(request{method: http.MethodPost, path: "/api/v1/tours/" + tour.ID.Hex() + "/reviews",
		token: token, body: `{"review":"Too good","rating":6}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingsRestricted(t *testing.T) {
	h := newHarness(t)
	_, userToken := h.user(t, "u@example.com", models.RoleUser)
	_, leadToken := h.user(t, "lead@example.com", models.RoleLeadGuide)

	assert.Equal(t, http.StatusForbidden, h.do(request{method: http.MethodGet, path: "/api/v1/bookings", token: userToken}).Code)
	assert.Equal(t, http.StatusOK, h.do(request{method: http.MethodGet, path: "/api/v1/bookings", token: leadToken}).Code)
}

func TestCheckoutSession(t *testing.T) {
	h := newHarness(t)
	tour := h.tour(t, "The Park Camper", false)
	_, token := h.user(t, "buyer@example.com", models.RoleUser)

	w := h.do(request{method: http.MethodGet, path: "/api/v1/bookings/checkout-session/" + tour.ID.Hex(), token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cs_test_1", body(t, w)["session"].(map[string]any)["id"])

	assert.Equal(t, tour.ID.Hex(), h.payments.last.TourID)
	assert.Equal(t, "buyer@example.com", h.payments.last.CustomerEmail)
	assert.True(t, strings.HasSuffix(h.payments.last.SuccessURL, "/my-tours?alert=booking"))
	assert.True(t, strings.HasSuffix(h.payments.last.CancelURL, "/tour/"+tour.Slug))
}

func TestWebhookCreatesBooking(t *testing.T) {
	h := newHarness(t)
	tour := h.tour(t, "The Park Camper", false)
	buyer, _ := h.user(t, "buyer@example.com", models.RoleUser)
	h.payments.completed = &payments.CompletedCheckout{
		SessionID: "cs_1", TourID: tour.ID.Hex(), CustomerEmail: "buyer@example.com", AmountTotal: 149700,
	}

	w := h.do(request{method: http.MethodPost, path: "/webhook-checkout", body: `{}`,
		header: map[string]string{"Stripe-Signature": "forged"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(request{method: http.MethodPost, path: "/webhook-checkout", body: `{}`,
		header: map[string]string{"Stripe-Signature": "valid"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	bookings, err := h.bookings.ByUser(context.Background(), buyer.ID)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, tour.ID, bookings[0].TourID)
	assert.Equal(t, 1497.0, bookings[0].Price)
	assert.True(t, bookings[0].Paid)
	assert.Contains(t, h.publisher.Published(), events.RKBookingPaid)
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)
	w := h.do(request{method: http.MethodGet, path: "/api/v1/nothing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Can't find /api/v1/nothing on this server!", body(t, w)["message"])
}

func TestPages(t *testing.T) {
	h := newHarness(t)
	tour := h.tour(t, "The Forest Hiker", false)
	buyer, token := h.user(t, "buyer@example.com", models.RoleUser)
	require.NoError(t, h.bookings.Create(context.Background(), &models.Booking{TourID: tour.ID, UserID: buyer.ID, Price: 397, Paid: true}))

	w := h.do(request{method: http.MethodGet, path: "/"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "The Forest Hiker")
	assert.Contains(t, w.Body.String(), `href="/login"`)

	w = h.do(request{method: http.MethodGet, path: "/tour/" + tour.Slug})
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(request{method: http.MethodGet, path: "/tour/no-such-tour"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "There is no tour with that name.")

	w = h.do(request{method: http.MethodGet, path: "/account"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(request{method: http.MethodGet, path: "/my-tours?alert=booking", header: map[string]string{
		"Cookie": middleware.CookieName + "=" + token,
	}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "The Forest Hiker")
	assert.Contains(t, w.Body.String(), "Your booking was successful!")
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	w := h.do(request{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, w.Code)
}
