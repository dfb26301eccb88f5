// Package scheduler runs the delayed outbound-call trigger on asynq. The
// enqueue side (Client) and the processing side (Worker) share the task
// definitions in this file.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskLeadCallDue = "leads.call.due"

type LeadCallDuePayload struct {
	LeadID string `json:"leadId"`
}

func NewLeadCallDueTask(payload LeadCallDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadCallDue, data), nil
}

func ParseLeadCallDuePayload(task *asynq.Task) (LeadCallDuePayload, error) {
	var payload LeadCallDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadCallDuePayload{}, err
	}
	return payload, nil
}
