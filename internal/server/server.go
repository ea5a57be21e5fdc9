package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quantalink/qnet-gateway/internal/config"
	"github.com/quantalink/qnet-gateway/internal/executor"
	"github.com/quantalink/qnet-gateway/internal/handler"
	"github.com/quantalink/qnet-gateway/internal/metrics"
	"github.com/quantalink/qnet-gateway/internal/middleware"
	"github.com/quantalink/qnet-gateway/internal/models"
	"github.com/quantalink/qnet-gateway/internal/ratelimit"
	"github.com/quantalink/qnet-gateway/internal/repository"
	"github.com/quantalink/qnet-gateway/internal/service"
	"github.com/quantalink/qnet-gateway/internal/storage"
	"github.com/quantalink/qnet-gateway/internal/tier"
	"go.uber.org/zap"
)

// Server composes the gateway pipeline: key classification, tiered rate
// limiting, the capability gate and the execution surface, plus the admin
// and observability endpoints around them.
//
// Redis and Postgres are both optional. Without Redis the counters live in
// process memory; without Postgres the admin surface and usage log are
// disabled while the keyed API keeps working, since classification needs no
// lookup.
type Server struct {
	router     *gin.Engine
	config     *config.Config
	log        *zap.Logger
	redis      *storage.RedisClient
	postgres   *storage.Postgres
	memStore   *ratelimit.MemoryStore
	httpServer *http.Server
	cancel     context.CancelFunc
	startTime  time.Time
}

func New(cfg *config.Config, log *zap.Logger, redis *storage.RedisClient, postgres *storage.Postgres) *Server {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	s := &Server{
		router:    router,
		config:    cfg,
		log:       log,
		redis:     redis,
		postgres:  postgres,
		startTime: time.Now(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	tiers := s.buildTiers()
	classifier := tier.NewPrefixClassifier(tiers)
	tracker := ratelimit.NewTracker(s.buildStore(ctx, m))

	executeHandler := handler.NewExecuteHandler(executor.New())

	// Global middleware.
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Metrics(m))
	router.Use(middleware.CORS())

	// The usage recorder must be installed before any route is registered,
	// so the admin wiring happens first.
	if postgres != nil {
		s.setupAdminRoutes(ctx, classifier)
	} else {
		log.Info("postgres not configured; admin surface and usage log disabled")
	}

	// Keyed API surface.
	v1 := router.Group("/v1")
	v1.Use(middleware.KeyClassifier(classifier))
	v1.Use(middleware.RateLimit(tracker, m, log))
	v1.POST("/execute", executeHandler.Execute)
	v1.GET("/protocols", executeHandler.Protocols)

	router.GET("/health", s.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return s
}

// buildTiers assembles the tier table: built-ins, then config overrides,
// then database overrides.
func (s *Server) buildTiers() map[string]*tier.Tier {
	tiers := tier.DefaultTiers()

	for _, o := range s.config.Tiers {
		if !tier.ApplyLimits(tiers, o.Name, o.RequestsPerMinute, o.RequestsPerHour, o.RequestsPerDay) {
			s.log.Warn("ignoring limits override for unknown tier", zap.String("tier", o.Name))
		}
	}

	if s.postgres != nil {
		var overrides []models.TierOverride
		if err := s.postgres.DB.Find(&overrides).Error; err != nil {
			s.log.Warn("failed to load tier overrides", zap.Error(err))
		}
		for _, o := range overrides {
			if !tier.ApplyLimits(tiers, o.Name, o.RequestsPerMinute, o.RequestsPerHour, o.RequestsPerDay) {
				s.log.Warn("ignoring limits override for unknown tier", zap.String("tier", o.Name))
			}
		}
	}

	return tiers
}

// buildStore picks the counter store: Redis behind a failover wrapper when
// configured, plain memory otherwise.
func (s *Server) buildStore(ctx context.Context, m *metrics.Metrics) ratelimit.Store {
	s.memStore = ratelimit.NewMemoryStore()
	s.memStore.StartJanitor(ctx)

	if s.redis == nil {
		return s.memStore
	}

	fs := ratelimit.NewFailoverStore(ratelimit.NewRedisStore(s.redis.Client), s.memStore, s.log)
	fs.NotifyFailover(func() {
		m.StoreErrors.WithLabelValues("failover").Inc()
	})
	return fs
}

func (s *Server) setupAdminRoutes(ctx context.Context, classifier *tier.PrefixClassifier) {
	apiKeyRepo := repository.NewAPIKeyRepository(s.postgres)
	userRepo := repository.NewUserRepository(s.postgres)
	usageRepo := repository.NewUsageLogRepository(s.postgres)

	apiKeyService := service.NewAPIKeyService(apiKeyRepo, classifier)
	authService := service.NewAuthService(userRepo, s.config.Auth.JWTSecret, s.config.Auth.TokenExpiryHours)
	usageService := service.NewUsageService(usageRepo)

	apiKeyHandler := handler.NewAPIKeyHandler(apiKeyService)
	authHandler := handler.NewAuthHandler(authService)
	usageHandler := handler.NewUsageHandler(usageService)

	if email, pass := s.config.Auth.AdminEmail, s.config.Auth.AdminPassword; email != "" && pass != "" {
		if err := authService.Register(ctx, email, pass, "admin"); err != nil {
			s.log.Info("admin bootstrap skipped", zap.String("email", email), zap.Error(err))
		} else {
			s.log.Info("admin account created", zap.String("email", email))
		}
	}

	recorder := middleware.NewUsageRecorder(usageRepo, apiKeyService, s.log, 1000)
	recorder.Start(ctx)
	s.router.Use(recorder.Middleware())

	guard := middleware.NewFloodGuard(s.config.FloodGuard.RPS, s.config.FloodGuard.Burst)
	guard.StartJanitor(ctx)

	s.router.POST("/admin/login", guard.Handler(), authHandler.Login)

	admin := s.router.Group("/admin")
	admin.Use(middleware.RequireAuth(authService))
	{
		admin.POST("/keys", apiKeyHandler.Create)
		admin.GET("/keys", apiKeyHandler.List)
		admin.GET("/keys/:id", apiKeyHandler.Get)
		admin.POST("/keys/:id/revoke", apiKeyHandler.Revoke)
		admin.DELETE("/keys/:id", apiKeyHandler.Delete)
		admin.GET("/usage", usageHandler.Summary)
		admin.GET("/status", s.adminStatus)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	status := "healthy"
	statusCode := http.StatusOK
	checks := gin.H{}

	if s.redis != nil {
		healthy := s.redis.Ping(ctx) == nil
		checks["redis"] = healthy
		if !healthy {
			// Degraded, not down: the limiter fails over to memory.
			status = "degraded"
		}
	}
	if s.postgres != nil {
		healthy := s.postgres.Ping(ctx) == nil
		checks["database"] = healthy
		if !healthy {
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "qnet-gateway",
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

func (s *Server) adminStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"gateway":      "running",
		"tracked_keys": s.memStore.Len(),
		"uptime_s":     time.Since(s.startTime).Seconds(),
		"timestamp":    time.Now().Unix(),
	})
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info("starting gateway",
		zap.String("addr", addr),
		zap.String("environment", s.config.Server.Environment),
	)

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
