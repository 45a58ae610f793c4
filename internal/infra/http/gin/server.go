package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentalspot/internal/infra/config"
	"rentalspot/internal/infra/obs"
)

type AvailabilityHTTP interface {
	Check(c *gin.Context)
	Pricing(c *gin.Context)
	Calendar(c *gin.Context)
	Block(c *gin.Context)
	Unblock(c *gin.Context)
	ValidateCoupon(c *gin.Context)
}

type BookingHTTP interface {
	CreateHold(c *gin.Context)
	Request(c *gin.Context)
	Get(c *gin.Context)
	Confirm(c *gin.Context)
	Cancel(c *gin.Context)
	PaymentCallback(c *gin.Context)
}

type Handlers struct {
	Availability AvailabilityHTTP
	Booking      BookingHTTP
	// PublicLimit guards the anonymous read endpoints; nil disables it.
	PublicLimit gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", "X-Request-ID"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	public := api.Group("")
	if h.PublicLimit != nil {
		public.Use(h.PublicLimit)
	}
	if h.Availability != nil {
		public.GET("/properties/:id/availability", h.Availability.Check)
		public.GET("/properties/:id/pricing", h.Availability.Pricing)
		public.GET("/coupons/:code/validate", h.Availability.ValidateCoupon)

		admin := api.Group("/admin/properties/:id")
		admin.GET("/calendar", h.Availability.Calendar)
		admin.POST("/calendar/block", h.Availability.Block)
		admin.POST("/calendar/unblock", h.Availability.Unblock)
	}
	if h.Booking != nil {
		api.POST("/holds", h.Booking.CreateHold)
		api.POST("/bookings", h.Booking.Request)
		api.GET("/bookings/:id", h.Booking.Get)
		api.POST("/bookings/:id/confirm", h.Booking.Confirm)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
		api.POST("/payments/callback", h.Booking.PaymentCallback)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
