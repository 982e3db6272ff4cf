package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourorg/staffdesk/internal/featureflags"
	"github.com/yourorg/staffdesk/internal/handler"
	"github.com/yourorg/staffdesk/internal/infrastructure/logger"
	"github.com/yourorg/staffdesk/internal/infrastructure/redis"
	"github.com/yourorg/staffdesk/internal/observability/metrics"
	"github.com/yourorg/staffdesk/internal/observability/tracing"
	"github.com/yourorg/staffdesk/internal/reliability/retry"
	"github.com/yourorg/staffdesk/internal/repository"
	"github.com/yourorg/staffdesk/internal/security/audit"
	"github.com/yourorg/staffdesk/internal/security/auth"
	"github.com/yourorg/staffdesk/internal/security/middleware"
	"github.com/yourorg/staffdesk/internal/security/ratelimit"
	"github.com/yourorg/staffdesk/internal/service"
	"github.com/yourorg/staffdesk/internal/worker"
	"github.com/yourorg/staffdesk/pkg/cache"
	"github.com/yourorg/staffdesk/pkg/config"
	"github.com/yourorg/staffdesk/pkg/database"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting StaffDesk server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op without an OTLP endpoint)
	shutdownTracing, err := tracing.Init(ctx, log, "staffdesk", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Connect to PostgreSQL, retrying while the database comes up
	dbConfig := &database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}
	pool, err := retry.Do(ctx, retry.StartupConfig(), log, "connect database",
		func(ctx context.Context) (*database.ConnectionPool, error) {
			return database.NewConnectionPool(ctx, dbConfig, log)
		})
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.EnsureSchema(); err != nil {
		log.Error("failed to ensure schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Connect to Redis for the token revocation store
	redisClient, err := retry.Do(ctx, retry.StartupConfig(), log, "connect redis",
		func(ctx context.Context) (*redis.Client, error) {
			return redis.NewClient(cfg.RedisURL)
		})
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// 6. Initialize repositories
	userRepo := repository.NewPostgresUserRepository(pool.GetDB(), log)
	employeeRepo := repository.NewPostgresEmployeeRepository(pool.GetDB(), log)
	revoker := repository.NewRevokedTokenRepository(redisClient, log)

	// 7. Initialize services
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "staffdesk")
	authService := service.NewAuthService(userRepo, tokenManager, revoker, log)
	employeeService := service.NewEmployeeService(employeeRepo, log)

	// 8. Initialize handlers
	dashboardCache := cache.New()
	authHandler := handler.NewAuthHandler(authService, log)
	employeesHandler := handler.NewEmployeesHandler(employeeService, dashboardCache, log)
	deleteHandler := handler.NewDeleteHandler(employeeService, dashboardCache, log)
	dashboardHandler := handler.NewDashboardHandler(employeeService, dashboardCache, cfg.DashboardCacheTTL, cfg.Timezone, log)

	// 8a. Initialize security components
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	auditLogger := audit.NewLogger(log)

	// 9. Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /register/", authHandler.RegisterForm)
	mux.HandleFunc("POST /register/", authHandler.Register)
	mux.HandleFunc("GET /login/", authHandler.LoginForm)
	mux.HandleFunc("POST /login/", authHandler.Login)
	mux.HandleFunc("POST /logout/", authHandler.Logout)
	mux.Handle("GET /{$}", dashboardHandler)
	mux.HandleFunc("GET /employees/", employeesHandler.List)
	// The add routes are anchored with {$} so they cannot overlap the
	// /employees/{id}/edit/ patterns at registration time.
	mux.HandleFunc("GET /employees/add/{$}", employeesHandler.AddForm)
	mux.HandleFunc("POST /employees/add/{$}", employeesHandler.Create)
	mux.HandleFunc("GET /employees/{id}/", employeesHandler.Detail)
	mux.HandleFunc("GET /employees/{id}/edit/", employeesHandler.EditForm)
	mux.HandleFunc("POST /employees/{id}/edit/", employeesHandler.Edit)
	// Registered without a method so wrong verbs get the structured flag payload
	mux.Handle("/employee/delete/{id}/", deleteHandler)
	mux.Handle("/metrics", promhttp.Handler())

	if featureflags.Enabled("live_dashboard") {
		liveHandler := handler.NewLiveDashboardHandler(employeeService, cfg.Timezone, cfg.LiveRefreshInterval, cfg.CORSAllowedOrigins, log)
		mux.Handle("GET /ws/dashboard", liveHandler)
		log.Info("live dashboard stream enabled")
	}

	// Health and readiness endpoints (no auth required)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Health(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("database not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	// Chain middleware: request ID -> metrics -> CORS -> JWT -> rate limit -> audit -> mux.
	// CORS sits outside the JWT wall so browser preflights are answered
	// without an Authorization header.
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			middleware.CORSMiddleware(cfg.CORSAllowedOrigins)(
				middleware.JWTMiddleware(tokenManager, revoker, log)(
					middleware.RateLimitMiddleware(rateLimiter, log)(
						middleware.AuditMiddleware(auditLogger)(mux),
					),
				),
			),
		),
		log,
	)

	// 10. Start stats worker in background
	statsWorker := worker.NewStatsWorker(employeeRepo, dashboardCache, log, cfg.StatsInterval)
	go statsWorker.Start(ctx)

	// 11. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(rootHandler, "staffdesk.http"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
		slog.String("timezone", cfg.Timezone.String()),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("shutdown signal received")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop stats worker
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := audit.WithRequestID(r.Context(), reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
