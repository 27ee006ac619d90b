package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	limiter "github.com/ulule/limiter/v3"
	"go.uber.org/zap"

	"github.com/harentsoaR/tour-booking-api/internal/handlers"
	"github.com/harentsoaR/tour-booking-api/internal/middleware"
	"github.com/harentsoaR/tour-booking-api/internal/models"
)

type Options struct {
	Production     bool
	CORSOrigins    []string
	BodyLimitBytes int64
	StaticDir      string
	ImageDir       string
	// Limiter is nil when requests are not rate limited.
	Limiter *limiter.Limiter
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, log *zap.Logger, opts Options) {

	// ======================================================
	// GLOBAL MIDDLEWARE
	// ======================================================
	r.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.ErrorHandler(log, opts.Production),
		middleware.Recovery(),
		middleware.SecurityHeaders(opts.Production),
		middleware.CORS(opts.CORSOrigins),
	)
	r.NoRoute(middleware.NoRoute)

	if opts.StaticDir != "" {
		r.Static("/css", opts.StaticDir+"/css")
		r.Static("/js", opts.StaticDir+"/js")
	}
	if opts.ImageDir != "" {
		r.Static("/img", opts.ImageDir)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// The provider signs the raw body, so this stays outside the JSON limits.
	r.POST("/webhook-checkout", h.WebhookCheckout)

	protect := middleware.Protect(h.Auth)
	restrictTo := func(roles ...string) gin.HandlerFunc {
		return middleware.RestrictTo(h.Auth, roles...)
	}

	// ======================================================
	// VIEWS
	// ======================================================
	loggedIn := middleware.IsLoggedIn(h.Auth)
	r.GET("/", loggedIn, h.Overview)
	r.GET("/tour/:slug", loggedIn, h.TourPage)
	r.GET("/login", loggedIn, h.LoginPage)
	r.GET("/account", protect, h.AccountPage)
	r.GET("/my-tours", protect, h.MyToursPage)

	// ======================================================
	// API
	// ======================================================
	api := r.Group("/api/v1")
	if opts.Limiter != nil {
		api.Use(middleware.RateLimit(opts.Limiter, log))
	}
	api.Use(middleware.BodyLimit(opts.BodyLimitBytes))

	tours := api.Group("/tours")
	{
		tours.GET("/top-5-cheap", h.AliasTopTours, h.GetTours)
		tours.GET("/tour-stats", h.GetTourStats)
		tours.GET("/monthly-plan/:year", protect,
			restrictTo(models.RoleAdmin, models.RoleLeadGuide, models.RoleGuide), h.GetMonthlyPlan)
		tours.GET("/tours-within/:distance/center/:latlng/unit/:unit", h.GetToursWithin)
		tours.GET("/distances/:latlng/unit/:unit", h.GetDistances)

		tours.GET("", h.GetTours)
		tours.POST("", protect, restrictTo(models.RoleAdmin, models.RoleLeadGuide), h.CreateTour)
		tours.GET("/:id", h.GetTour)
		tours.PATCH("/:id", protect, restrictTo(models.RoleAdmin, models.RoleLeadGuide), h.UpdateTour)
		tours.DELETE("/:id", protect, restrictTo(models.RoleAdmin, models.RoleLeadGuide), h.DeleteTour)

		tours.GET("/:id/reviews", protect, h.GetReviews)
		tours.POST("/:id/reviews", protect, restrictTo(models.RoleUser), h.CreateReview)
	}

	users := api.Group("/users")
	{
		users.POST("/signup", h.Signup)
		users.POST("/login", h.Login)
		users.GET("/logout", h.Logout)
		users.POST("/forgotPassword", h.ForgotPassword)
		users.PATCH("/resetPassword/:token", h.ResetPassword)

		me := users.Group("", protect)
		me.PATCH("/updatePassword", h.UpdatePassword)
		me.GET("/me", h.GetMe)
		me.PATCH("/updateMe", h.UpdateMe)
		me.DELETE("/deleteMe", h.DeleteMe)

		admin := me.Group("", restrictTo(models.RoleAdmin))
		admin.GET("", h.GetUsers)
		admin.POST("", h.CreateUser)
		admin.GET("/:id", h.GetUser)
		admin.PATCH("/:id", h.UpdateUser)
		admin.DELETE("/:id", h.DeleteUser)
	}

	reviews := api.Group("/reviews", protect)
	{
		reviews.GET("", h.GetReviews)
		reviews.POST("", restrictTo(models.RoleUser), h.CreateReview)
		reviews.GET("/:id", h.GetReview)
		reviews.PATCH("/:id", restrictTo(models.RoleUser, models.RoleAdmin), h.UpdateReview)
		reviews.DELETE("/:id", restrictTo(models.RoleUser, models.RoleAdmin), h.DeleteReview)
	}

	bookings := api.Group("/bookings", protect)
	{
		bookings.GET("/checkout-session/:tourId", h.GetCheckoutSession)

		staff := bookings.Group("", restrictTo(models.RoleAdmin, models.RoleLeadGuide))
		staff.GET("", h.GetBookings)
		staff.POST("", h.CreateBooking)
		staff.GET("/:id", h.GetBooking)
		staff.PATCH("/:id", h.UpdateBooking)
		staff.DELETE("/:id", h.DeleteBooking)
	}
}
