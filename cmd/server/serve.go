package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aawaaz/ticket-server/internal/config"
	"github.com/aawaaz/ticket-server/internal/database"
	"github.com/aawaaz/ticket-server/internal/handlers"
	"github.com/aawaaz/ticket-server/internal/lifecycle"
	"github.com/aawaaz/ticket-server/internal/middleware"
	"github.com/aawaaz/ticket-server/internal/ratelimit"
	"github.com/aawaaz/ticket-server/internal/realtime"
	"github.com/aawaaz/ticket-server/internal/services"
	"github.com/aawaaz/ticket-server/internal/storage"
	"github.com/aawaaz/ticket-server/internal/store"
	"github.com/aawaaz/ticket-server/internal/store/memory"
	"github.com/aawaaz/ticket-server/internal/store/postgres"
)

func newServeCommand() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync()

			return serve(cfg, logger, autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func serve(cfg *config.Config, logger *zap.Logger, autoMigrate bool) error {
	sugar := logger.Sugar()
	sugar.Infow("Starting ticket server",
		"port", cfg.Port,
		"env", cfg.Environment,
		"store", cfg.StoreBackend,
		"realtime", redisMode(cfg),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, sugar, autoMigrate)
	if err != nil {
		return err
	}
	defer st.Close()

	files, err := storage.NewFileStore(cfg.AttachmentDir)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = realtime.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			sugar.Warnw("Redis unavailable, using in-process realtime and rate limiting", "error", err)
			redisClient = nil
		}
	}

	var broker realtime.Broker
	var limiter ratelimit.Limiter
	if redisClient != nil {
		rb := realtime.NewRedisBroker(redisClient, sugar)
		go func() {
			if err := rb.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				sugar.Errorw("Realtime relay stopped", "error", err)
			}
		}()
		defer rb.Close()
		broker = rb
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimitRPM)
	} else {
		broker = realtime.NewLocalBroker()
		ml := ratelimit.NewMemoryLimiter(cfg.RateLimitRPM)
		go ml.Sweep(ctx, 5*time.Minute)
		limiter = ml
	}

	policy := lifecycle.Policy{
		StrictResolved:    cfg.StrictResolved,
		EditOnlyWhileOpen: cfg.EditOnlyWhileOpen,
	}

	// Initialize services
	ticketSvc := services.NewTicketService(st, files, broker, policy, cfg.BusinessLocation, sugar)
	upvoteSvc := services.NewUpvoteService(st, broker, sugar)
	notificationSvc := services.NewNotificationService(st, broker, sugar)
	statusSvc := services.NewGlobalStatusService(st, broker, sugar)
	analyticsSvc := services.NewAnalyticsService(st, cfg.BusinessLocation, sugar)
	reconcileWorker := services.NewReconcileWorker(st, cfg.NotificationRetention, sugar)

	// Start background reconcile worker (upvote counts, notification retention)
	go reconcileWorker.Start(ctx, cfg.ReconcileInterval)

	api := &handlers.API{
		Health:         handlers.NewHealthHandler(st, broker, sugar),
		Tickets:        handlers.NewTicketHandler(ticketSvc, upvoteSvc, sugar),
		Admin:          handlers.NewAdminHandler(ticketSvc, analyticsSvc, sugar),
		Notifications:  handlers.NewNotificationHandler(notificationSvc, sugar),
		Status:         handlers.NewStatusHandler(statusSvc, sugar),
		Realtime:       handlers.NewRealtimeHandler(broker, sugar),
		Authenticate:   middleware.Authenticate(cfg.JWTSecret, st, sugar),
		RequestTimeout: 30 * time.Second,
	}

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RateLimit(limiter, sugar))

	r.Route("/api/v1", api.Routes)

	// Create HTTP server. Event streams clear their own write deadline.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infof("Server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	sugar.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	sugar.Info("Server stopped")
	return nil
}

// openStore builds the configured backend.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger, autoMigrate bool) (store.Store, error) {
	if cfg.StoreBackend == "memory" {
		mem := memory.New()
		roles, err := parseSeedRoles(cfg.SeedRoles)
		if err != nil {
			return nil, err
		}
		for id, role := range roles {
			mem.SetRole(id, role)
		}
		logger.Warnw("Using in-memory store; data is lost on restart", "seeded_users", len(roles))
		return mem, nil
	}

	if autoMigrate {
		if err := database.NewMigrator(cfg.DatabaseURL, logger).Up(); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, database.PoolSettings{
		MaxConns:        int32(cfg.DBMaxConns),
		MinConns:        int32(cfg.DBMinConns),
		MaxConnLifetime: cfg.DBMaxConnLifetime,
		MaxConnIdleTime: cfg.DBMaxConnIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return postgres.New(pool), nil
}

// parseSeedRoles parses "<uuid>:<role>" pairs.
func parseSeedRoles(pairs []string) (map[uuid.UUID]lifecycle.Role, error) {
	roles := make(map[uuid.UUID]lifecycle.Role, len(pairs))
	for _, pair := range pairs {
		rawID, rawRole, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("seed role %q: expected <user id>:<role>", pair)
		}
		id, err := uuid.Parse(strings.TrimSpace(rawID))
		if err != nil {
			return nil, fmt.Errorf("seed role %q: %w", pair, err)
		}
		role, err := lifecycle.ParseRole(strings.TrimSpace(rawRole))
		if err != nil {
			return nil, fmt.Errorf("seed role %q: %w", pair, err)
		}
		roles[id] = role
	}
	return roles, nil
}

func redisMode(cfg *config.Config) string {
	if cfg.RedisURL == "" {
		return "local"
	}
	return "redis"
}
