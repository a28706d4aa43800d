package server

import (
	"fmt"
	"net/http"
	"time"

	"dxt-admin/internal/apiclient"
	"dxt-admin/internal/cache"
	"dxt-admin/internal/config"
	"dxt-admin/internal/csvimport"
	"dxt-admin/internal/database"
	"dxt-admin/internal/identity"
	custommiddleware "dxt-admin/internal/middleware"
	"dxt-admin/internal/selector"
	"dxt-admin/internal/session"
	"dxt-admin/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// busyGrace is how long past the upload timeout an import step may stay
// marked running before it is treated as failed.
const busyGrace = time.Minute

// selectorIdle is how long an unused store selector is kept.
const selectorIdle = 30 * time.Minute

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	redis  *database.Service
	cache  *cache.Cache
}

// Options replaces collaborators, mainly in tests.
type Options struct {
	// Redis backs sessions and login throttling. Nil keeps both in memory.
	Redis *database.Service
	// APIOptions are applied to the backend client.
	APIOptions []apiclient.Option
	// Cache overrides the cache retry and freshness settings.
	Cache *cache.Config
}

func NewServer(cfg *config.Config, logger *zap.Logger, opts Options) (*Server, error) {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok"}
		if opts.Redis != nil {
			health := opts.Redis.Health(r.Context())
			body["redis"] = health
			if health["status"] != "up" {
				body["status"] = "degraded"
			}
		}
		custommiddleware.RespondWithJSON(w, http.StatusOK, body)
	})

	// Initialize stores
	var (
		store       session.Store
		redisClient *redis.Client
	)
	if opts.Redis != nil {
		redisClient = opts.Redis.Client()
		store = session.NewRedisStore(redisClient)
	} else {
		logger.Warn("Redis disabled, sessions are kept in process memory")
		store = session.NewMemoryStore()
	}

	cacheCfg := cache.DefaultConfig()
	if opts.Cache != nil {
		cacheCfg = *opts.Cache
	} else {
		cacheCfg.StaleTime = cfg.Cache.StaleTime
		cacheCfg.GCTime = cfg.Cache.GCTime
	}
	queryCache := cache.New(cacheCfg, logger)

	// Initialize services
	provider := identity.NewProvider(cfg.Identity, cfg.API.Timeout, logger)
	apiOpts := append([]apiclient.Option{apiclient.WithUploadTimeout(cfg.API.UploadTimeout)}, opts.APIOptions...)
	api := apiclient.New(cfg.API.BaseURL, cfg.API.Timeout, logger, apiOpts...)
	selectors := selector.NewRegistry(selector.DefaultDebounce, selectorIdle, logger)
	stash := csvimport.NewStash(store, cfg.Session.TTL)

	renderer, err := transport.NewRenderer(logger)
	if err != nil {
		queryCache.Close()
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	// Initialize handlers
	authHandler := transport.NewAuthHandler(renderer, selectors, stash, logger)
	dashboardHandler := transport.NewDashboardHandler(renderer, queryCache, logger)
	storeHandler := transport.NewStoreHandler(renderer, queryCache, selectors, logger)
	productHandler := transport.NewProductHandler(renderer, queryCache, selectors, logger)
	importHandler := transport.NewImportHandler(renderer, stash, selectors, cfg.API.UploadTimeout+busyGrace, logger)
	proxyHandler := transport.NewProxyHandler(cfg.API.BaseURL, cfg.API.Timeout, logger)

	loginLimit := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.Server.LoginRateLimit,
		Window:            cfg.Server.LoginWindow,
		KeyPrefix:         "ratelimit:login",
		Message:           "Too many login attempts. Please wait a moment and try again.",
	}, logger)

	// Register routes
	router.Group(func(r chi.Router) {
		r.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.IsDevelopment()))
		proxyHandler.RegisterRoutes(r)
	})

	router.Group(func(r chi.Router) {
		r.Use(custommiddleware.SessionMiddleware(store, provider, api, custommiddleware.SessionConfig{
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
			Secure:     cfg.Session.SecureCookie,
		}, logger))
		r.Use(custommiddleware.NavigationMiddleware(logger))

		authHandler.RegisterRoutes(r, loginLimit)

		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.RequireAdmin(logger))
			dashboardHandler.RegisterRoutes(r)
			storeHandler.RegisterRoutes(r)
			productHandler.RegisterRoutes(r)
			importHandler.RegisterRoutes(r)
		})
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  time.Minute,
			WriteTimeout: cfg.API.UploadTimeout + 30*time.Second,
		},
		config: cfg,
		logger: logger,
		redis:  opts.Redis,
		cache:  queryCache,
	}

	return server, nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	s.cache.Close()

	// Close redis connection
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
