package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskExecuteImportJob = "imports.execute"

type ExecuteImportJobPayload struct {
	JobID string `json:"jobId"`
}

func NewExecuteImportJobTask(payload ExecuteImportJobPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExecuteImportJob, data), nil
}

func ParseExecuteImportJobPayload(task *asynq.Task) (ExecuteImportJobPayload, error) {
	var payload ExecuteImportJobPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ExecuteImportJobPayload{}, err
	}
	return payload, nil
}
