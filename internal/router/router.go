package router

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	appointmenth "github.com/clinexa/booking-api/internal/handler/appointment"
	authh "github.com/clinexa/booking-api/internal/handler/auth"
	clinich "github.com/clinexa/booking-api/internal/handler/clinic"
	healthh "github.com/clinexa/booking-api/internal/handler/health"
	patienth "github.com/clinexa/booking-api/internal/handler/patient"
	"github.com/clinexa/booking-api/internal/middleware"
	"github.com/clinexa/booking-api/internal/model"
	"github.com/clinexa/booking-api/pkg/metrics"
)

type Config struct {
	RateLimit  rate.Limit
	RateBurst  int
	CORSConfig middleware.CORSConfig
	Timeout    middleware.TimeoutConfig
}

type Router struct {
	engine       *gin.Engine
	auth         *middleware.AuthMiddleware
	authH        *authh.Handler
	clinicH      *clinich.Handler
	appointmentH *appointmenth.Handler
	patientH     *patienth.Handler
	healthH      *healthh.Handler
	metrics      *metrics.Metrics
	config       Config
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authH *authh.Handler,
	clinicH *clinich.Handler,
	appointmentH *appointmenth.Handler,
	patientH *patienth.Handler,
	db *sqlx.DB,
	m *metrics.Metrics,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	return &Router{
		engine:       gin.New(),
		auth:         auth,
		authH:        authH,
		clinicH:      clinicH,
		appointmentH: appointmentH,
		patientH:     patientH,
		healthH:      healthh.NewHandler(db),
		metrics:      m,
		config:       config,
	}
}

// Setup wires the middleware chain and all routes and returns the engine.
func (r *Router) Setup() *gin.Engine {
	e := r.engine

	e.Use(middleware.RequestID())
	e.Use(middleware.Recovery())
	e.Use(middleware.Logger())
	e.Use(middleware.Metrics(r.metrics))
	e.Use(middleware.CORS(r.config.CORSConfig))
	e.Use(middleware.Timeout(r.config.Timeout))
	e.Use(middleware.ErrorHandler())

	if r.config.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  r.config.RateLimit,
			Burst: r.config.RateBurst,
		})
		e.Use(limiter.RateLimit())
	}

	r.healthH.RegisterRoutes(e)
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := e.Group("/api/v1")

	// Public: auth, clinic profile, slot availability.
	r.authH.RegisterRoutes(v1)
	r.clinicH.RegisterPublicRoutes(v1)
	r.appointmentH.RegisterPublicRoutes(v1)

	// Authenticated booking surface.
	authed := v1.Group("")
	authed.Use(r.auth.Authenticate())
	r.appointmentH.RegisterRoutes(authed)
	r.patientH.RegisterRoutes(authed)

	// Staff-only clinic management.
	staff := v1.Group("")
	staff.Use(r.auth.Authenticate(), r.auth.RequireRole(model.RoleDoctor, model.RoleAdmin))
	r.clinicH.RegisterStaffRoutes(staff)

	return e
}
