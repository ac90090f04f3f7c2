// Package scheduler runs deferred work through asynq: bulk prediction
// batches requested with queue=true are processed here instead of
// inside the HTTP request.
package scheduler

import (
	"context"
	"fmt"

	"leadscore_backend/internal/predictions/service"
	"leadscore_backend/platform/config"
	"leadscore_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	predictions *service.Service
	log         *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, predictions *service.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
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
		server:      server,
		mux:         mux,
		predictions: predictions,
		log:         log,
	}

	mux.HandleFunc(TaskBulkPredictions, w.handleBulkPredictions)

	return w, nil
}

func (w *Worker) handleBulkPredictions(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseBulkPredictionsPayload(task)
	if err != nil {
		return err
	}

	organizationID, err := uuid.Parse(payload.OrganizationID)
	if err != nil {
		return err
	}

	result, err := w.predictions.BulkGenerate(ctx, organizationID, payload.PredictionType, payload.Limit)
	if err != nil {
		return err
	}

	w.log.Info("bulk predictions completed",
		"organization_id", payload.OrganizationID,
		"prediction_type", payload.PredictionType,
		"processed", result.Processed,
		"successful", result.Successful,
		"failed", result.Failed,
	)
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
