package scheduler

import (
	"context"
	"fmt"

	"leadboard_backend/platform/config"
	"leadboard_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ImportExecutor runs a confirmed import job.
type ImportExecutor interface {
	Execute(ctx context.Context, jobID uuid.UUID) error
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	executor ImportExecutor
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, executor ImportExecutor, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		executor: executor,
		log:      log,
	}

	mux.HandleFunc(TaskExecuteImportJob, w.handleExecuteImportJob)

	return w, nil
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

func (w *Worker) handleExecuteImportJob(ctx context.Context, task *asynq.Task) error {
	jobID, err := importJobID(task)
	if err != nil {
		w.log.Warn("dropping malformed import task", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return w.executor.Execute(ctx, jobID)
}

func importJobID(task *asynq.Task) (uuid.UUID, error) {
	payload, err := ParseExecuteImportJobPayload(task)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(payload.JobID)
}
