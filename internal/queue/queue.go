package queue

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func NewSchedulePostTask(payload SchedulePostPayload) (*asynq.Task, error) {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error encoding task payload: %w", err)
	}
	return asynq.NewTask(TaskTypeSchedulePost, taskPayload, asynq.MaxRetry(3)), nil
}

func EnqueuePost(client Enqueuer, payload SchedulePostPayload, delay time.Duration) error {
	task, err := NewSchedulePostTask(payload)
	if err != nil {
		return err
	}

	info, err := client.Enqueue(task, asynq.ProcessIn(delay))
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	slog.Info("post scheduled",
		slog.Int64("post_id", payload.PostID),
		slog.String("task_id", info.ID),
		slog.Duration("delay", delay),
	)
	return nil
}
