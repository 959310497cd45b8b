package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/sarops/incident-api/internal/middleware"
)

// Handler mounts its routes on a router group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	RateLimit rate.Limit
	RateBurst int
	// The public registration surface gets its own, tighter limit.
	PublicRateLimit rate.Limit
	PublicRateBurst int
	CORSConfig      middleware.CORSConfig
	MetricsPrefix   string
}

type Router struct {
	engine        *gin.Engine
	auth          *middleware.AuthMiddleware
	authH         Handler
	credentialH   Handler
	incidentH     Handler
	registrationH Handler
	healthH       Handler
	metrics       *routerMetrics
	config        RouterConfig
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authH Handler,
	credentialH Handler,
	incidentH Handler,
	registrationH Handler,
	healthH Handler,
	config RouterConfig,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	return &Router{
		engine:        gin.New(),
		auth:          auth,
		authH:         authH,
		credentialH:   credentialH,
		incidentH:     incidentH,
		registrationH: registrationH,
		healthH:       healthH,
		metrics:       initRouterMetrics(config.MetricsPrefix),
		config:        config,
	}
}

func (r *Router) Setup() {
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  r.config.RateLimit,
		Burst: r.config.RateBurst,
	})

	r.engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		middleware.SecurityHeaders(),
		middleware.CORS(r.config.CORSConfig),
		r.metricsMiddleware(),
		limiter.RateLimit(),
	)

	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	root := r.engine.Group("")
	r.healthH.RegisterRoutes(root)

	api := r.engine.Group("/api/v1")
	r.authH.RegisterRoutes(api)

	// Public: reachable by anyone holding a scanned link.
	publicLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  r.config.PublicRateLimit,
		Burst: r.config.PublicRateBurst,
	})
	public := r.engine.Group("/api/v1", publicLimiter.RateLimit())
	r.registrationH.RegisterRoutes(public)

	// Coordinator surface behind operator auth.
	protected := r.engine.Group("/api/v1", r.auth.Authenticate())
	r.credentialH.RegisterRoutes(protected)
	r.incidentH.RegisterRoutes(protected)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	if prefix == "" {
		prefix = "incident_api"
	}
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: prefix,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: prefix,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
			r.metrics.requestDuration.WithLabelValues(
				c.Request.Method, c.FullPath(), statusLabel(c)).Observe(v)
		}))
		defer timer.ObserveDuration()

		c.Next()

		r.metrics.requestTotal.WithLabelValues(
			c.Request.Method, c.FullPath(), statusLabel(c)).Inc()
	}
}

func statusLabel(c *gin.Context) string {
	switch s := c.Writer.Status(); {
	case s >= 500:
		return "5xx"
	case s >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
