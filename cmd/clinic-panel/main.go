package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinic/panel/internal/config"
	"github.com/clinic/panel/internal/domain/availability"
	"github.com/clinic/panel/internal/domain/roster"
	"github.com/clinic/panel/internal/editor"
	"github.com/clinic/panel/internal/platform/apiclient"
	"github.com/clinic/panel/internal/platform/auth"
	"github.com/clinic/panel/internal/platform/db"
	"github.com/clinic/panel/internal/platform/metrics"
	"github.com/clinic/panel/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-panel",
		Short: "Clinic admin panel: doctor roster and weekly availability",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(editCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(out io.Writer, env, level string) zerolog.Logger {
	logger := zerolog.New(out).With().Timestamp().Logger()
	if env == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func editCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit a doctor's weekly availability from a command script",
		Long: "Reads editor commands (select, down, enter, up, resolve, cancel, show, save, ...)\n" +
			"one per line from --script or stdin and applies them through the API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("script")
			stop, _ := cmd.Flags().GetBool("stop-on-error")

			cfg, err := config.LoadEditor()
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.Env, cfg.LogLevel)

			var opts []apiclient.Option
			if cfg.APIToken != "" {
				opts = append(opts, apiclient.WithToken(cfg.APIToken))
			}
			client, err := apiclient.New(cfg.APIBaseURL, cfg.APITimeout, opts...)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if path != "" && path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			ed := editor.New(client, client, metrics.NewAvailabilityMetrics(prometheus.NewRegistry()), logger)
			script := editor.NewScript(ed, cmd.OutOrStdout())
			script.StopOnError = stop

			failures, err := script.Run(cmd.Context(), in)
			if err != nil {
				return err
			}
			if failures > 0 {
				return fmt.Errorf("%d command(s) failed", failures)
			}
			if ed.Dirty() {
				logger.Warn().Msg("script ended with unsaved availability edits")
			}
			return nil
		},
	}
	cmd.Flags().String("script", "", "Command file (default stdin)")
	cmd.Flags().Bool("stop-on-error", false, "Abort at the first failing command")
	return cmd
}

// serverPool is the database surface the HTTP server needs.
type serverPool interface {
	db.TxQuerier
	db.Pinger
}

func newRedisClient(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// newServer builds the echo instance with every route registered. rdb may
// be nil, in which case the roster is read straight from Postgres.
func newServer(cfg *config.Config, pool serverPool, stats func() *db.PoolStats, rdb *redis.Client, reg *prometheus.Registry, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPut},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool, stats))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Auth applies to the API only.
	var authMW echo.MiddlewareFunc
	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		logger.Warn().Msg("development auth enabled: every request is admin")
		authMW = auth.DevAuthMiddleware()
	} else {
		authMW = auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
		})
	}
	apiV1 := e.Group("/api/v1", authMW)

	var cache roster.Cache
	if rdb != nil {
		cache = roster.NewRedisCache(rdb, cfg.RosterCacheTTL)
	}
	rosterSvc := roster.NewService(roster.NewDoctorRepoPG(pool), cache, logger)
	roster.NewHandler(rosterSvc).RegisterRoutes(apiV1)

	availMetrics := metrics.NewAvailabilityMetrics(reg)
	availSvc := availability.NewService(availability.NewRepoPG(pool), rosterSvc, availMetrics, logger)
	availability.NewHandler(availSvc).RegisterRoutes(apiV1)

	return e
}

func runServer() error {
	logger := newLogger(os.Stdout, os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	logger = newLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Redis
	rdb, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid redis config")
	}
	if rdb != nil {
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, roster cache will fall back to postgres")
		} else {
			logger.Info().Msg("connected to redis")
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	e := newServer(cfg, pool, func() *db.PoolStats { return db.GetPoolStats(pool) }, rdb, reg, logger)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
