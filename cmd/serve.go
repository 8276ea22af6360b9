package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibast-solutions/ms-go-donations/app/backend"
	"github.com/vibast-solutions/ms-go-donations/app/controller"
	"github.com/vibast-solutions/ms-go-donations/app/flow"
	"github.com/vibast-solutions/ms-go-donations/app/metrics"
	"github.com/vibast-solutions/ms-go-donations/app/repository"
	"github.com/vibast-solutions/ms-go-donations/app/service"
	"github.com/vibast-solutions/ms-go-donations/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for donation submission, flow tracking, and subscription management.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, donationService, subscriptionManager, cleanup := mustCreateServices()
	defer cleanup()
	defer donationService.Close()

	metrics.MustRegister()

	donationController := controller.NewDonationController(donationService)
	subscriptionController := controller.NewSubscriptionController(subscriptionManager)

	e := setupHTTPServer(donationController, subscriptionController, cfg.Donations.RateLimitPerSec)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	donationController *controller.DonationController,
	subscriptionController *controller.SubscriptionController,
	rateLimitPerSec float64,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.RequestID())

	writeLimiter := echomiddleware.RateLimiter(
		echomiddleware.NewRateLimiterMemoryStore(rate.Limit(rateLimitPerSec)),
	)

	e.GET("/health", donationController.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	donations := e.Group("/donations")
	donations.POST("", donationController.CreateDonation, writeLimiter)
	donations.GET("/flows/:id", donationController.GetDonationFlow)
	donations.POST("/flows/:id/dismiss", donationController.DismissDonationFlow)

	subscriptions := e.Group("/subscriptions")
	subscriptions.GET("/my-subscription", subscriptionController.GetMySubscription)
	subscriptions.PUT("/:id", subscriptionController.UpdateSubscription, writeLimiter)
	subscriptions.POST("/:id/pause", subscriptionController.PauseSubscription, writeLimiter)
	subscriptions.POST("/:id/resume", subscriptionController.ResumeSubscription, writeLimiter)
	subscriptions.DELETE("/:id", subscriptionController.CancelSubscription, writeLimiter)

	return e
}

func mustCreateServices() (*config.Config, *service.DonationService, *service.SubscriptionManager, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	backendClient := backend.NewClient(backend.Config{
		BaseURL:     cfg.Backend.BaseURL,
		APIKey:      cfg.Backend.APIKey,
		HTTPTimeout: cfg.Backend.HTTPTimeout,
	})

	attemptRepo := repository.NewAttemptRepository(db)
	eventRepo := repository.NewAttemptEventRepository(db)
	flows := flow.NewMemoryStore()
	poller := service.NewStatusPoller(backendClient, cfg.Donations.PollInterval, cfg.Donations.PollMaxAttempts)

	donationService := service.NewDonationService(
		backendClient,
		attemptRepo,
		eventRepo,
		flows,
		poller,
		cfg.Donations,
		cfg.Jobs,
	)
	subscriptionManager := service.NewSubscriptionManager(backendClient)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, donationService, subscriptionManager, cleanup
}
