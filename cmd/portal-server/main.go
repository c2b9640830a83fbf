package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/amma-health/portal/internal/config"
	"github.com/amma-health/portal/internal/domain/appointment"
	"github.com/amma-health/portal/internal/domain/doctor"
	"github.com/amma-health/portal/internal/domain/identity"
	"github.com/amma-health/portal/internal/domain/link"
	"github.com/amma-health/portal/internal/domain/patient"
	"github.com/amma-health/portal/internal/domain/research"
	"github.com/amma-health/portal/internal/platform/ai"
	"github.com/amma-health/portal/internal/platform/auth"
	"github.com/amma-health/portal/internal/platform/middleware"
	"github.com/amma-health/portal/internal/platform/notification"
	"github.com/amma-health/portal/internal/platform/seed"
	"github.com/amma-health/portal/internal/platform/snapshot"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal-server",
		Short: "AMMA healthcare portal API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo dataset into the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := context.Background()
			store, cleanup, err := newStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			svcs, _, err := buildServices(ctx, cfg, store, logger)
			if err != nil {
				return err
			}
			if err := seed.Demo(ctx, svcs, logger); err != nil {
				return err
			}
			fmt.Println("Demo dataset loaded. Demo password:", seed.DemoPassword)
			return nil
		},
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

// newStore builds the configured snapshot backend. The returned
// cleanup releases pooled connections; it is a no-op for the memory
// and file backends.
func newStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (snapshot.Store, func(), error) {
	noop := func() {}
	switch cfg.StoreBackend {
	case "memory":
		return snapshot.NewMemoryStore(), noop, nil
	case "file":
		store, err := snapshot.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("file store: %w", err)
		}
		return store, noop, nil
	case "postgres":
		pool, err := snapshot.NewPGPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		store := snapshot.NewPGStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info().Msg("connected to postgres")
		return store, pool.Close, nil
	case "redis":
		store, err := snapshot.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info().Msg("connected to redis")
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

type services struct {
	issuer        *auth.Issuer
	users         *identity.Registry
	links         *link.Registry
	appointments  *appointment.Service
	patients      *patient.Service
	doctors       *doctor.Service
	research      *research.Service
	notifications *notification.Service
}

// buildServices constructs and wires every domain service on top of
// the shared snapshot store.
func buildServices(ctx context.Context, cfg *config.Config, store snapshot.Store, logger zerolog.Logger) (seed.Services, *services, error) {
	issuer := auth.NewIssuer([]byte(cfg.JWTSecret))
	aiClient := ai.NewOpenRouterClient(ai.OpenRouterConfig{
		APIURL: cfg.AIAPIURL,
		APIKey: cfg.AIAPIKey,
		Model:  cfg.AIModel,
	}, logger)

	users, err := identity.NewRegistry(ctx, store, issuer, logger)
	if err != nil {
		return seed.Services{}, nil, fmt.Errorf("identity: %w", err)
	}
	links, err := link.NewRegistry(ctx, store, logger)
	if err != nil {
		return seed.Services{}, nil, fmt.Errorf("links: %w", err)
	}
	appointments, err := appointment.NewService(ctx, store, logger)
	if err != nil {
		return seed.Services{}, nil, fmt.Errorf("appointments: %w", err)
	}
	patients, err := patient.NewService(ctx, store, aiClient, users, logger)
	if err != nil {
		return seed.Services{}, nil, fmt.Errorf("patients: %w", err)
	}
	doctors, err := doctor.NewService(ctx, store, links, appointments, logger)
	if err != nil {
		return seed.Services{}, nil, fmt.Errorf("doctors: %w", err)
	}
	researchSvc, err := research.NewService(ctx, store, aiClient, seed.NewDataset(500), logger)
	if err != nil {
		return seed.Services{}, nil, fmt.Errorf("research: %w", err)
	}
	notifications, err := notification.NewService(ctx, store, logger)
	if err != nil {
		return seed.Services{}, nil, fmt.Errorf("notifications: %w", err)
	}

	events := notification.NewEvents(notifications)
	links.SetNotifier(events)
	appointments.SetNotifier(events)
	patients.SetNotifier(events)

	all := &services{
		issuer:        issuer,
		users:         users,
		links:         links,
		appointments:  appointments,
		patients:      patients,
		doctors:       doctors,
		research:      researchSvc,
		notifications: notifications,
	}
	seedable := seed.Services{
		Users:        users,
		Links:        links,
		Appointments: appointments,
		Patients:     patients,
		Doctors:      doctors,
	}
	return seedable, all, nil
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	store, cleanup, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open snapshot store")
	}
	defer cleanup()

	seedable, svcs, err := buildServices(ctx, cfg, store, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build services")
	}

	if cfg.SeedDemoData {
		if err := seed.Demo(ctx, seedable, logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed demo data")
		}
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	api := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	// Login and registration stay reachable without a token.
	identityHandler := identity.NewHandler(svcs.users)
	identityHandler.RegisterPublicRoutes(api)

	authed := api.Group("")
	if cfg.IsDev() {
		authed.Use(auth.DevMiddleware(svcs.issuer))
	} else {
		authed.Use(auth.Middleware(svcs.issuer))
	}

	identityHandler.RegisterRoutes(authed)
	link.NewHandler(svcs.links).RegisterRoutes(authed)
	appointment.NewHandler(svcs.appointments).RegisterRoutes(authed)
	patient.NewHandler(svcs.patients).RegisterRoutes(authed)
	doctor.NewHandler(svcs.doctors).RegisterRoutes(authed)
	research.NewHandler(svcs.research).RegisterRoutes(authed)
	notification.NewHandler(svcs.notifications).RegisterRoutes(authed)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreBackend).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
