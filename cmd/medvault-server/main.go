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

	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/domain/chat"
	"github.com/medvault/medvault/internal/domain/document"
	"github.com/medvault/medvault/internal/domain/profile"
	"github.com/medvault/medvault/internal/domain/schedule"
	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/blobstore"
	"github.com/medvault/medvault/internal/platform/db"
	"github.com/medvault/medvault/internal/platform/detect"
	"github.com/medvault/medvault/internal/platform/eventlog"
	"github.com/medvault/medvault/internal/platform/llm"
	"github.com/medvault/medvault/internal/platform/middleware"
)

// acceptedRecordsAdapter feeds the profile reconciler from the document
// domain's extraction records, avoiding a circular import between the two
// packages.
type acceptedRecordsAdapter struct {
	records document.RecordRepository
}

func (a *acceptedRecordsAdapter) ListAccepted(ctx context.Context, userID string) ([]profile.AcceptedExtraction, error) {
	records, err := a.records.ListAccepted(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]profile.AcceptedExtraction, 0, len(records))
	for _, r := range records {
		extractionDate := r.ExtractionDate
		out = append(out, profile.AcceptedExtraction{
			Payload:        r.Payload,
			AcceptedAt:     r.AcceptedAt,
			ExtractionDate: &extractionDate,
		})
	}
	return out, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "medvault-server",
		Short: "Prescription document assistant API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
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

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

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

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Blob store
	var blobs blobstore.Store
	if cfg.S3Bucket != "" {
		s3store, err := blobstore.NewS3(ctx, blobstore.S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure blob store")
		}
		blobs = s3store
	} else {
		logger.Warn().Msg("S3_BUCKET not set, using in-memory blob store")
		blobs = blobstore.NewMemory()
	}

	// External clients
	events := eventlog.New(cfg.EventLogPath, logger)
	detector := detect.New(cfg.DetectionURL, cfg.DetectionTimeout())
	llmClient := llm.New(llm.Options{
		Provider:     cfg.LLMProvider,
		Model:        cfg.LLMModel,
		APIKey:       cfg.LLMAPIKey,
		URL:          cfg.LLMAPIURL,
		SystemPrompt: cfg.LLMSystemPrompt,
		MaxTokens:    cfg.LLMMaxTokens,
		Temperature:  cfg.LLMTemperature,
		Timeout:      cfg.LLMTimeout(),
	}, events, logger)

	// Repositories
	docRepo := document.NewRepoPG(pool)
	recordRepo := document.NewRecordRepoPG(pool)
	profileRepo := profile.NewRepoPG(pool)
	scheduleRepo := schedule.NewRepoPG(pool)

	// Services
	profileSvc := profile.NewService(profileRepo, &acceptedRecordsAdapter{records: recordRepo}, logger)
	scheduleSvc := schedule.NewService(scheduleRepo, logger)
	fanout := document.NewFanout(detector, llmClient, blobs, events, logger,
		cfg.DetectionTimeout(), cfg.LLMTimeout())
	documentSvc := document.NewService(pool, docRepo, recordRepo, blobs, fanout,
		scheduleSvc, profileSvc, logger)
	chatSvc := chat.NewService(profileSvc, llmClient, cfg.LLMSystemPrompt, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("6M"))
	e.Use(middleware.RequestTimeout(2 * time.Minute))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() && cfg.SecretKey == "" {
		e.Use(auth.DevAuthMiddleware(""))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			SigningKey: []byte(cfg.SecretKey),
			Issuer:     cfg.AuthIssuer,
			Skipper:    auth.AuthSkipper,
		}))
	}

	// API group
	api := e.Group("/api")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Domain routes
	document.NewHandler(documentSvc).RegisterRoutes(api)
	profile.NewHandler(profileSvc).RegisterRoutes(api)
	schedule.NewHandler(scheduleSvc).RegisterRoutes(api)
	chat.NewHandler(chatSvc).RegisterRoutes(api)

	// Start server
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
