package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/bacaltosclinic/portal-api/internal/config"
	"github.com/bacaltosclinic/portal-api/internal/database"
	"github.com/bacaltosclinic/portal-api/internal/handlers"
	"github.com/bacaltosclinic/portal-api/internal/identity"
	"github.com/bacaltosclinic/portal-api/internal/logger"
	"github.com/bacaltosclinic/portal-api/internal/middleware"
	"github.com/bacaltosclinic/portal-api/internal/provisioning"
	"github.com/bacaltosclinic/portal-api/internal/queue"
	"github.com/bacaltosclinic/portal-api/internal/telemetry"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("auth_provider_url", cfg.AuthProviderURL),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "clinic-portal-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	// Connect to Redis for rate limiting
	redisLimiter, err := middleware.NewRedisRateLimiter(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisLimiter.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// Connect to RabbitMQ for the provisioning audit stream (required).
	// Retry with exponential backoff to handle broker startup delays.
	const maxRetries = 10
	const initialDelay = 2 * time.Second
	var publisher queue.Publisher
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		publisher, err = queue.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			defer func() {
				if err := publisher.Close(); err != nil {
					zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
				}
			}()
			break
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
			zap.Int("max_retries", maxRetries),
			zap.Error(lastErr),
		)
	}

	// Identity provider client: fails fast if any credential tier is missing
	provider, err := identity.New(cfg.AuthProviderURL, cfg.AuthAnonKey, cfg.AuthServiceKey)
	if err != nil {
		zapLogger.Fatal("failed_to_initialize_identity_provider_client", zap.Error(err))
	}
	jwksManager := identity.NewJWKSManager()
	verifier := identity.NewVerifier(jwksManager, provider.Issuer(), provider.JWKSURL())

	// Repository and coordinator
	userRepo := database.NewUserRepository(db)
	coordinator := provisioning.New(userRepo, provider, publisher, zapLogger)

	// Handlers
	authHandler := handlers.NewAuthHandler(coordinator, zapLogger)
	userHandler := handlers.NewUserHandler(coordinator, zapLogger)
	healthChecker := handlers.NewHealthChecker(db, redisLimiter, publisher)

	// Rate limit middleware: a strict rate on the credential endpoints, a
	// looser one on the authenticated API
	authRateLimitMW, err := middleware.RateLimit(redisLimiter, middleware.DefaultAuthRate)
	if err != nil {
		zapLogger.Fatal("failed_to_create_auth_rate_limiter", zap.Error(err))
	}
	apiRateLimitMW, err := middleware.RateLimit(redisLimiter, middleware.DefaultAPIRate)
	if err != nil {
		zapLogger.Fatal("failed_to_create_api_rate_limiter", zap.Error(err))
	}

	// Setup router
	r := mux.NewRouter()

	zapLogger.Info("setting_up_middleware")

	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("clinic-portal-api"))
		zapLogger.Info("otel_middleware_enabled")
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	// Public routes
	r.HandleFunc("/", handlers.Root).Methods("GET")
	r.HandleFunc("/api", handlers.APIInfo).Methods("GET")
	r.HandleFunc("/health", healthChecker.Health).Methods("GET")
	r.HandleFunc("/healthz", healthChecker.Healthz).Methods("GET")
	r.HandleFunc("/version", handlers.Version).Methods("GET")

	// Public auth routes with the strict rate limit
	publicAuthRouter := r.PathPrefix("").Subrouter()
	publicAuthRouter.Use(authRateLimitMW)
	authHandler.RegisterRoutes(publicAuthRouter)

	// User management API. The Auth middleware verifies the bearer token
	// against the provider's JWKS and attaches the caller; the coordinator
	// re-verifies admin authority before any mutation.
	usersRouter := r.PathPrefix("/api/v1/users").Subrouter()
	usersRouter.Use(middleware.Auth(verifier, userRepo, zapLogger))
	usersRouter.Use(apiRateLimitMW)
	userHandler.RegisterRoutes(usersRouter)

	// Catch-all OPTIONS handler for preflight requests; the CORS middleware
	// sets the headers before this runs
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}
