package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskBulkPredictions = "predictions.bulk"

type BulkPredictionsPayload struct {
	OrganizationID string `json:"organizationId"`
	PredictionType string `json:"predictionType"`
	Limit          int    `json:"limit"`
}

func NewBulkPredictionsTask(payload BulkPredictionsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBulkPredictions, data), nil
}

func ParseBulkPredictionsPayload(task *asynq.Task) (BulkPredictionsPayload, error) {
	var payload BulkPredictionsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return BulkPredictionsPayload{}, err
	}
	return payload, nil
}
