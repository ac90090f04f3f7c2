package scheduler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string      { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return "predictions" }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 2 }

func TestBulkPredictionsPayload_RoundTrip(t *testing.T) {
	payload := BulkPredictionsPayload{
		OrganizationID: uuid.New().String(),
		PredictionType: "CONVERSION",
		Limit:          25,
	}

	task, err := NewBulkPredictionsTask(payload)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if task.Type() != TaskBulkPredictions {
		t.Fatalf("task type = %q, want %q", task.Type(), TaskBulkPredictions)
	}

	parsed, err := ParseBulkPredictionsPayload(task)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if parsed != payload {
		t.Fatalf("payload round-trip mismatch: %+v != %+v", parsed, payload)
	}
}

func TestClient_EnqueueBulkPredictions(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	taskID, err := client.EnqueueBulkPredictions(context.Background(), uuid.New(), "CONVERSION", 10)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if taskID == "" {
		t.Fatal("expected a non-empty task id")
	}
}

func TestNewClient_RequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{redisURL: ""}); err == nil {
		t.Fatal("expected error when redis url missing")
	}
}
