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
	"golang.org/x/crypto/bcrypt"

	"github.com/convenio/convenio/internal/config"
	"github.com/convenio/convenio/internal/domain/affiliate"
	"github.com/convenio/convenio/internal/domain/appointment"
	"github.com/convenio/convenio/internal/domain/catalog"
	"github.com/convenio/convenio/internal/domain/consultation"
	"github.com/convenio/convenio/internal/domain/identity"
	"github.com/convenio/convenio/internal/domain/medrecord"
	"github.com/convenio/convenio/internal/domain/patients"
	"github.com/convenio/convenio/internal/domain/payment"
	"github.com/convenio/convenio/internal/domain/report"
	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/internal/platform/auth"
	"github.com/convenio/convenio/internal/platform/db"
	"github.com/convenio/convenio/internal/platform/gateway"
	"github.com/convenio/convenio/internal/platform/imagehost"
	"github.com/convenio/convenio/internal/platform/middleware"
	"github.com/convenio/convenio/internal/platform/renderer"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "convenio-server",
		Short: "API do convênio de saúde",
	}
	rootCmd.AddCommand(serveCmd(), bootstrapCmd(), seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func bootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create tables and indexes, cleaning up constraint violations first",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()
			return db.NewBootstrapper(pool, logger).Run(ctx)
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed default categories, services and the admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AdminCPF == "" || cfg.AdminPassword == "" {
				return fmt.Errorf("ADMIN_CPF and ADMIN_PASSWORD must be set to seed the admin")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), 12)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()
			return db.NewBootstrapper(pool, logger).
				Seed(ctx, identity.NormalizeCPF(cfg.AdminCPF), cfg.AdminName, string(hash))
		},
	}
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
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	if err := db.NewBootstrapper(pool, logger).Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("schema bootstrap failed")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	signer := auth.NewTokenSigner(cfg.TokenSecret)

	// public carries the endpoints reached before (or without) a session:
	// registration, login, affiliate clicks and the payment webhook.
	public := e.Group("/api")
	public.Use(middleware.RateLimit(rateLimitCfg))

	// Auth runs before the limiter so authenticated traffic is throttled
	// per user rather than per IP.
	api := e.Group("/api")
	api.Use(auth.Middleware(signer))
	api.Use(middleware.RateLimit(rateLimitCfg))

	// External collaborators.
	mp := gateway.NewMercadoPago(cfg.MPAccessToken)
	docs := renderer.NewHTTPRenderer(cfg.RendererURL)
	images := imagehost.NewHTTPHost(cfg.ImageHostURL, cfg.ImageHostKey)

	// Repositories.
	userRepo := identity.NewUserRepo(pool)
	dependentRepo := patients.NewDependentRepo(pool)
	privatePatientRepo := patients.NewPrivatePatientRepo(pool)
	categoryRepo := catalog.NewCategoryRepo(pool)
	serviceRepo := catalog.NewServiceRepo(pool)
	consultationRepo := consultation.NewRepo(pool)
	appointmentRepo := appointment.NewRepo(pool)
	locationRepo := appointment.NewLocationRepo(pool)
	accessRepo := appointment.NewAccessRepo(pool)
	recordRepo := medrecord.NewRecordRepo(pool)
	documentRepo := medrecord.NewDocumentRepo(pool)
	referralRepo := affiliate.NewRepo(pool)
	paymentRepo := payment.NewRepo(pool)
	reportRepo := report.NewRepo(pool)

	// Services. Affiliate comes first: identity links referrals at
	// registration, payments convert them on settlement.
	affiliateSvc := affiliate.NewService(referralRepo, userRepo)
	identitySvc := identity.NewService(userRepo, affiliateSvc)
	patientsSvc := patients.NewService(dependentRepo, privatePatientRepo)
	catalogSvc := catalog.NewCatalogService(categoryRepo, serviceRepo)
	appointmentSvc := appointment.NewService(appointmentRepo, locationRepo, accessRepo, identitySvc, pool)
	consultationSvc := consultation.NewService(consultationRepo, catalogSvc, identitySvc, patientsSvc, appointmentSvc, logger)
	medrecordSvc := medrecord.NewService(recordRepo, documentRepo, docs, patientsSvc)
	paymentSvc := payment.NewService(paymentRepo, mp, identitySvc, patientsSvc, affiliateSvc, cfg.BaseURL, logger)
	reportSvc := report.NewService(reportRepo)

	// Handlers.
	identity.NewHandler(identitySvc, signer, images, cfg.IsProduction()).RegisterRoutes(public, api)
	patients.NewHandler(patientsSvc).RegisterRoutes(api)
	catalog.NewHandler(catalogSvc).RegisterRoutes(api)
	consultation.NewHandler(consultationSvc).RegisterRoutes(api)
	appointment.NewHandler(appointmentSvc).RegisterRoutes(api)
	medrecord.NewHandler(medrecordSvc).RegisterRoutes(api)
	affiliate.NewHandler(affiliateSvc).RegisterRoutes(public, api)
	payment.NewHandler(paymentSvc).RegisterRoutes(public, api)
	report.NewHandler(reportSvc).RegisterRoutes(api)

	e.GET("/health", db.HealthHandler(pool))

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
