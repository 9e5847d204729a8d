package main

import (
	"context"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/voicee/paytrack/config"
	"github.com/voicee/paytrack/internal/auth"
	"github.com/voicee/paytrack/internal/gateway"
	handler "github.com/voicee/paytrack/internal/handler/http"
	"github.com/voicee/paytrack/internal/middleware"
	"github.com/voicee/paytrack/internal/notify"
	"github.com/voicee/paytrack/internal/repository"
	"github.com/voicee/paytrack/internal/repository/postgres"
	"github.com/voicee/paytrack/internal/service"
	"github.com/voicee/paytrack/internal/worker"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// newLogger creates logger with log level
func newLogger(level string) (*zap.Logger, error) {

	loggerLvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	loggerCfg := zap.NewProductionConfig()
	loggerCfg.Level = loggerLvl

	return loggerCfg.Build()
}

func main() {

	// create new config
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// initialize logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()

	// create context cancelled on shutdown signals
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// initialize database
	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("Error initializing database", zap.Error(err))
	}
	defer db.Close()

	// migrate database
	if err := db.Migrate(); err != nil {
		logger.Fatal("Error migrating database", zap.Error(err))
	}

	// dependency injection
	orderRepo := repository.NewOrderRepository(db, logger)

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:     cfg.GatewayAddr,
		TerminalKey: cfg.TerminalKey,
		Password:    cfg.TerminalPass,
		Taxation:    cfg.Taxation,
		VAT:         cfg.VAT,
		Timeout:     cfg.RequestTimeout,
	}, logger)

	var notifier service.Notifier
	if cfg.NotifyURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.NotifyURL)
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	paymentService := service.NewPaymentService(orderRepo, gatewayClient, notifier, service.Config{
		Delay:       cfg.PollDelay,
		MaxAttempts: cfg.PollMaxAttempts,
		AutoCancel:  cfg.AutoCancel,
		Description: cfg.Description,
	}, logger)
	paymentHandler := handler.NewPaymentHandler(paymentService, logger)

	// background sweep resuming unfinished orders
	reconciler := worker.NewReconciler(paymentService, cfg.SweepInterval, logger)
	go reconciler.Run(ctx)

	router := chi.NewRouter()

	router.Use(middleware.Logging(logger))

	routes := func(group chi.Router) {
		group.Post("/api/payments", paymentHandler.CreatePayment())
		group.Get("/api/payments", paymentHandler.ListPayments())
		group.Get("/api/payments/{id}", paymentHandler.GetPayment())
		group.Post("/api/payments/{id}/cancel", paymentHandler.CancelPayment())
	}

	if cfg.AuthTokenKey != "" {
		tokenKey, err := hex.DecodeString(cfg.AuthTokenKey)
		if err != nil {
			logger.Fatal("Error extracting token key", zap.Error(err))
		}
		token := auth.NewAuthToken(tokenKey)

		router.Group(func(group chi.Router) {
			group.Use(middleware.Auth(token))
			routes(group)
		})
	} else {
		logger.Warn("auth token key is not set, operator API is open")
		router.Group(routes)
	}

	server := &http.Server{Addr: cfg.ServerAddr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down server", zap.Error(err))
		}
	}()

	logger.Info("Running server", zap.String("addr", cfg.ServerAddr))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Error starting server", zap.Error(err))
	}
}
