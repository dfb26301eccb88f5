package scheduler

import (
	"context"
	"fmt"

	"epiclead_backend/platform/apperr"
	"epiclead_backend/platform/config"
	"epiclead_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// CallTrigger is the slice of the leads service the worker needs: the
// fire-time decision of whether and how to dial a lead.
type CallTrigger interface {
	TriggerScheduledCall(ctx context.Context, leadID string) error
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	trigger CallTrigger
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, trigger CallTrigger, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		trigger: trigger,
		log:     log,
	}

	mux.HandleFunc(TaskLeadCallDue, w.handleLeadCallDue)

	return w, nil
}

// handleLeadCallDue fires the delayed call trigger. Upstream provider errors
// propagate so asynq retries with backoff; a malformed payload is permanent
// and must not be retried.
func (w *Worker) handleLeadCallDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadCallDuePayload(task)
	if err != nil {
		return fmt.Errorf("parse lead call payload: %w: %v", asynq.SkipRetry, err)
	}

	if err := w.trigger.TriggerScheduledCall(ctx, payload.LeadID); err != nil {
		if apperr.Is(err, apperr.KindBadRequest) {
			return fmt.Errorf("lead call trigger rejected: %w: %v", asynq.SkipRetry, err)
		}
		return err
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
