package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskTypeSubscriptionSweep = "subscription:sweep"

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Queues returns queue priority weights for the worker.
func Queues() map[string]int {
	return map[string]int{
		QueueCritical: 6,
		QueueDefault:  3,
		QueueLow:      1,
	}
}

type SubscriptionSweepPayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

func NewSubscriptionSweepTask() (*asynq.Task, error) {
	payload, err := json.Marshal(SubscriptionSweepPayload{RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeSubscriptionSweep, payload, asynq.Queue(QueueDefault)), nil
}

