package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"epiclead_backend/internal/calendly"
	"epiclead_backend/internal/events"
	apphttp "epiclead_backend/internal/http"
	"epiclead_backend/internal/http/router"
	"epiclead_backend/internal/leads"
	"epiclead_backend/internal/leads/ports"
	"epiclead_backend/internal/notification"
	"epiclead_backend/internal/retell"
	"epiclead_backend/internal/scheduler"
	"epiclead_backend/internal/webhook"
	"epiclead_backend/platform/config"
	"epiclead_backend/platform/db"
	"epiclead_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Provider clients; both are optional so local development works without
	// real credentials.
	var callProvider ports.CallProvider
	retellClient := retell.NewClient(cfg, log)
	if retellClient != nil {
		callProvider = retellClient
	} else {
		log.Warn("retell not configured; outbound calls disabled")
	}

	var bookingProvider ports.SchedulingProvider
	calendlyClient := calendly.NewClient(cfg, log)
	if calendlyClient != nil {
		bookingProvider = calendlyClient
	} else {
		log.Warn("calendly not configured; scheduling tools disabled")
	}

	callScheduler, closeScheduler := initCallScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule := leads.NewModule(leads.ModuleDeps{
		Pool:      pool,
		Calls:     callProvider,
		Booking:   bookingProvider,
		Scheduler: callScheduler,
		Bus:       eventBus,
		Logger:    log,
		Policy:    cfg,
		Timezone:  cfg.CalendlyTimezone,
	})

	webhookModule := webhook.NewModule(leadsModule.Service, cfg, log)

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.NewModule(notificationSender(retellClient), notificationLinks(calendlyClient), cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			webhookModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initCallScheduler(cfg config.SchedulerConfig, log *logger.Logger) (ports.CallTaskScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; delayed call triggers disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize call scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

// A nil *retell.Client must become a nil interface, not an interface holding
// a nil pointer.
func notificationSender(client *retell.Client) notification.TextSender {
	if client == nil {
		return nil
	}
	return client
}

func notificationLinks(client *calendly.Client) notification.LinkBuilder {
	if client == nil {
		return nil
	}
	return client
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
