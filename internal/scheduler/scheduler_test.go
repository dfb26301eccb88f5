package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"epiclead_backend/platform/apperr"
	"epiclead_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL string
	queue    string
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c testSchedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestClientSchedulesLeadCall(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + srv.Addr(), queue: "default"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	leadID := "11111111-1111-1111-1111-111111111111"
	runAt := time.Now().Add(3 * time.Minute)
	if err := client.ScheduleLeadCall(context.Background(), leadID, runAt); err != nil {
		t.Fatalf("ScheduleLeadCall() error = %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: srv.Addr()})
	defer inspector.Close()

	tasks, err := inspector.ListScheduledTasks("default")
	if err != nil {
		t.Fatalf("ListScheduledTasks() error = %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("scheduled tasks = %d, want 1", len(tasks))
	}
	if tasks[0].Type != TaskLeadCallDue {
		t.Fatalf("task type = %q, want %q", tasks[0].Type, TaskLeadCallDue)
	}
	if !strings.Contains(string(tasks[0].Payload), leadID) {
		t.Fatalf("task payload %q missing lead id", tasks[0].Payload)
	}
}

func TestClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatalf("NewClient() with empty redis url succeeded, want error")
	}
}

func TestLeadCallDuePayloadRoundTrip(t *testing.T) {
	task, err := NewLeadCallDueTask(LeadCallDuePayload{LeadID: "abc"})
	if err != nil {
		t.Fatalf("NewLeadCallDueTask() error = %v", err)
	}

	payload, err := ParseLeadCallDuePayload(task)
	if err != nil {
		t.Fatalf("ParseLeadCallDuePayload() error = %v", err)
	}
	if payload.LeadID != "abc" {
		t.Fatalf("lead id = %q", payload.LeadID)
	}
}

type fakeTrigger struct {
	calls []string
	err   error
}

func (f *fakeTrigger) TriggerScheduledCall(_ context.Context, leadID string) error {
	f.calls = append(f.calls, leadID)
	return f.err
}

func TestWorkerHandlesLeadCallDue(t *testing.T) {
	trigger := &fakeTrigger{}
	w := &Worker{trigger: trigger, log: logger.New("development")}

	task, _ := NewLeadCallDueTask(LeadCallDuePayload{LeadID: "lead-1"})
	if err := w.handleLeadCallDue(context.Background(), task); err != nil {
		t.Fatalf("handleLeadCallDue() error = %v", err)
	}
	if len(trigger.calls) != 1 || trigger.calls[0] != "lead-1" {
		t.Fatalf("trigger calls = %v", trigger.calls)
	}
}

func TestWorkerRetriesUpstreamFailures(t *testing.T) {
	trigger := &fakeTrigger{err: apperr.Upstream("provider down", errors.New("503"))}
	w := &Worker{trigger: trigger, log: logger.New("development")}

	task, _ := NewLeadCallDueTask(LeadCallDuePayload{LeadID: "lead-1"})
	err := w.handleLeadCallDue(context.Background(), task)
	if err == nil {
		t.Fatalf("upstream failure swallowed, task would never retry")
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("upstream failure marked SkipRetry")
	}
}

func TestWorkerSkipsPermanentFailures(t *testing.T) {
	w := &Worker{trigger: &fakeTrigger{err: apperr.BadRequest("malformed lead id")}, log: logger.New("development")}

	task, _ := NewLeadCallDueTask(LeadCallDuePayload{LeadID: "not-a-uuid"})
	err := w.handleLeadCallDue(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("permanent failure error = %v, want SkipRetry", err)
	}

	bad := asynq.NewTask(TaskLeadCallDue, []byte("{not json"))
	if err := w.handleLeadCallDue(context.Background(), bad); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("malformed payload error = %v, want SkipRetry", err)
	}
}
