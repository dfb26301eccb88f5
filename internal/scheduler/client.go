package scheduler

import (
	"context"
	"fmt"
	"time"

	"epiclead_backend/internal/leads/ports"
	"epiclead_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleLeadCall enqueues the call trigger to fire at runAt. The task
// survives process restarts; whether the call actually happens is decided by
// the worker's status re-read at fire time, not here.
func (c *Client) ScheduleLeadCall(ctx context.Context, leadID string, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewLeadCallDueTask(LeadCallDuePayload{LeadID: leadID})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(runAt), asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

// Compile-time check that Client implements the leads port
var _ ports.CallTaskScheduler = (*Client)(nil)
