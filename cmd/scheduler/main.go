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
	"epiclead_backend/internal/leads"
	"epiclead_backend/internal/leads/ports"
	"epiclead_backend/internal/notification"
	"epiclead_backend/internal/retell"
	"epiclead_backend/internal/scheduler"
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

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	var callProvider ports.CallProvider
	retellClient := retell.NewClient(cfg, log)
	if retellClient != nil {
		callProvider = retellClient
	} else {
		log.Warn("retell not configured; call triggers will be dropped")
	}

	var bookingProvider ports.SchedulingProvider
	calendlyClient := calendly.NewClient(cfg, log)
	if calendlyClient != nil {
		bookingProvider = calendlyClient
	}

	// The worker only fires call triggers; it never enqueues new ones.
	leadsModule := leads.NewModule(leads.ModuleDeps{
		Pool:     pool,
		Calls:    callProvider,
		Booking:  bookingProvider,
		Bus:      eventBus,
		Logger:   log,
		Policy:   cfg,
		Timezone: cfg.CalendlyTimezone,
	})

	notificationModule := notification.NewModule(notificationSender(retellClient), notificationLinks(calendlyClient), cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	worker, err := scheduler.NewWorker(cfg, leadsModule.Service, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	log.Info("scheduler stopped")
}

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
