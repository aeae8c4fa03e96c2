package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"medicare-server/internal/config"
	"medicare-server/internal/events"
	"medicare-server/internal/jobs"
	"medicare-server/internal/mailer"
	"medicare-server/internal/middleware"
	"medicare-server/internal/models"
	"medicare-server/internal/payment"
	"medicare-server/internal/routes"
	"medicare-server/internal/services"
	"medicare-server/internal/storage"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "medicare-server",
		Short:        "Clinic management API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(seedAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// bootstrap loads the configuration and opens the database.
func bootstrap() (*config.Config, zerolog.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	db, err := models.Open(models.DatabaseConfig{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		LogQueries:   cfg.IsDev(),
	})
	if err != nil {
		return nil, logger, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, logger, db, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, db, err := bootstrap()
			if err != nil {
				return err
			}
			if err := models.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info().Msg("database migrated")
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire unpaid appointments once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, db, err := bootstrap()
			if err != nil {
				return err
			}
			pub := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
			defer closePublisher(pub, logger)

			r := services.NewReconciler(db, cfg.UnpaidAppointmentTTL, pub, logger)
			n, err := r.Sweep(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("Released %d unpaid appointment(s)\n", n)
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the first super admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			name, _ := cmd.Flags().GetString("name")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}

			cfg, _, db, err := bootstrap()
			if err != nil {
				return err
			}
			if err := models.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			admin, err := services.NewUserService(db, cfg).CreateSuperAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			fmt.Printf("Super admin %s created (%s)\n", admin.Email, admin.ID)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Super admin email")
	cmd.Flags().String("password", "", "Super admin password")
	cmd.Flags().String("name", "Super Admin", "Super admin display name")
	return cmd
}

func runServer() error {
	cfg, logger, db, err := bootstrap()
	if err != nil {
		return err
	}
	if err := models.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("connected to database")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewDisk(cfg.UploadDir, cfg.PublicURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare upload directory")
	}

	pub := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	defer closePublisher(pub, logger)

	var limiter middleware.Counter
	if cfg.RedisURL != "" {
		counter, err := middleware.NewRedisCounter(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, rate limiting disabled")
		} else {
			defer counter.Close()
			limiter = counter
		}
	}

	sslcommerz := payment.NewSSLCommerz(payment.SSLCommerzConfig{
		StoreID:       cfg.SSL.StoreID,
		StorePassword: cfg.SSL.StorePassword,
		PaymentAPI:    cfg.SSL.PaymentAPI,
		ValidationAPI: cfg.SSL.ValidationAPI,
		SuccessURL:    cfg.SSL.SuccessURL,
		FailURL:       cfg.SSL.FailURL,
		CancelURL:     cfg.SSL.CancelURL,
		IPNURL:        cfg.SSL.IPNURL,
	}, &http.Client{Timeout: 15 * time.Second})

	stripe := payment.NewStripe(payment.StripeConfig{
		SecretKey:  cfg.Stripe.SecretKey,
		Currency:   cfg.Stripe.Currency,
		SuccessURL: cfg.ClientURL + "/payment?status=success",
		CancelURL:  cfg.ClientURL + "/payment?status=cancel",
	})

	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger, cfg.IsDev()))
	router.Use(middleware.ErrorHandler(cfg.IsDev()))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))
	router.Use(middleware.Sanitize())

	routes.SetupRoutes(router, routes.Deps{
		DB:     db,
		Config: cfg,
		Log:    logger,
		Store:  store,
		Mailer: mailer.New(mailer.Config{
			Host:     cfg.Mailer.Host,
			Port:     cfg.Mailer.Port,
			Username: cfg.Mailer.Username,
			Password: cfg.Mailer.Password,
			From:     cfg.Mailer.From,
		}, logger),
		Events:    pub,
		Booking:   stripe,
		Checkout:  sslcommerz,
		Validator: sslcommerz,
		Limiter:   limiter,
	})

	reconciler := services.NewReconciler(db, cfg.UnpaidAppointmentTTL, pub, logger)
	runner := jobs.NewRunner("unpaid-appointments", reconciler, cfg.ReconcileInterval, logger)
	jobsDone := make(chan struct{})
	go func() {
		defer close(jobsDone)
		runner.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.Environment).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	<-jobsDone
	logger.Info().Msg("server stopped")
	return nil
}

func closePublisher(pub events.Publisher, logger zerolog.Logger) {
	if c, ok := pub.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close event publisher")
		}
	}
}
