package devserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prohmpiriya/nejat-client/internal/metrics"
	"github.com/prohmpiriya/nejat-client/pkg/logger"
	"github.com/prohmpiriya/nejat-client/pkg/redis"
	"github.com/prohmpiriya/nejat-client/pkg/telemetry"
)

// RouterConfig contains what the router needs
type RouterConfig struct {
	Repo   EventRepository
	Logger *logger.Logger
	// Redis is reported by /health and backs idempotent writes when set
	Redis *redis.Client
	// Idempotency overrides the store behind X-Idempotency-Key
	Idempotency IdempotencyStore
	// Metrics and Gatherer enable request metrics and the metrics route
	Metrics     *metrics.Recorder
	Gatherer    prometheus.Gatherer
	MetricsPath string
	Tracing     bool
	ServiceName string
}

// NewRouter builds the gin engine
func NewRouter(cfg *RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	if cfg.Tracing {
		router.Use(telemetry.TracingMiddleware(cfg.ServiceName))
	}
	router.Use(Logger(log.Named("http")))
	if cfg.Metrics != nil {
		router.Use(Metrics(cfg.Metrics))
	}

	health := NewHealthHandler(cfg.Redis)
	router.GET("/health", health.Health)

	if cfg.Gatherer != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	h := NewEventHandler(cfg.Repo, log)

	var writes []gin.HandlerFunc
	store := cfg.Idempotency
	if store == nil && cfg.Redis != nil {
		store = cfg.Redis.Client()
	}
	if store != nil {
		writes = append(writes, Idempotency(&IdempotencyConfig{Store: store, Logger: log}))
	}
	write := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, writes...), handler)
	}

	nejat := router.Group("/nejat")
	{
		nejat.GET("", h.List)
		nejat.GET("/performers", h.ListPerformers)
		nejat.GET("/ticketEvents", h.ListTicketEvents)
		nejat.GET("/:id", h.GetByID)
		nejat.PATCH("/performerVote/:id", write(h.Vote)...)
		nejat.POST("/createTicket", write(h.CreateTicket)...)
	}
	router.POST("/subscribers/createSubscription", write(h.CreateSubscription)...)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found"})
	})

	return router
}
