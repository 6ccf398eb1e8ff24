package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadboard_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

func TestExecuteImportJobTaskRoundTrip(t *testing.T) {
	jobID := uuid.New()
	task, err := NewExecuteImportJobTask(ExecuteImportJobPayload{JobID: jobID.String()})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskExecuteImportJob {
		t.Fatalf("unexpected task type %q", task.Type())
	}

	got, err := importJobID(task)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != jobID {
		t.Fatalf("expected %s, got %s", jobID, got)
	}
}

type recordingExecutor struct {
	calls []uuid.UUID
}

func (r *recordingExecutor) Execute(_ context.Context, jobID uuid.UUID) error {
	r.calls = append(r.calls, jobID)
	return nil
}

func TestHandleExecuteImportJobSkipsRetryOnBadPayload(t *testing.T) {
	exec := &recordingExecutor{}
	w := &Worker{executor: exec, log: logger.Discard()}

	err := w.handleExecuteImportJob(context.Background(), asynq.NewTask(TaskExecuteImportJob, []byte(`{"jobId":"nope"}`)))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
	if len(exec.calls) != 0 {
		t.Fatalf("executor should not run, got %d calls", len(exec.calls))
	}

	jobID := uuid.New()
	task, _ := NewExecuteImportJobTask(ExecuteImportJobPayload{JobID: jobID.String()})
	if err := w.handleExecuteImportJob(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exec.calls) != 1 || exec.calls[0] != jobID {
		t.Fatalf("expected one call for %s, got %v", jobID, exec.calls)
	}
}

type fakeCleaner struct {
	before      []time.Time
	staleBefore []time.Time
	previews    int
	err         error
}

func (f *fakeCleaner) CleanupFinished(_ context.Context, before time.Time) (int, error) {
	f.before = append(f.before, before)
	return 2, f.err
}

func (f *fakeCleaner) FailStaleJobs(_ context.Context, before time.Time) (int, error) {
	f.staleBefore = append(f.staleBefore, before)
	return 1, f.err
}

func (f *fakeCleaner) CleanupExpiredPreviews(context.Context) (int, error) {
	f.previews++
	return 0, f.err
}

func TestImportJobCleanupUsesRetentionCutoff(t *testing.T) {
	cleaner := &fakeCleaner{}
	c := NewImportJobCleanup(cleaner, logger.Discard(), time.Minute, 48*time.Hour)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.cleanup(context.Background())
	cleaner.err = errors.New("db down")
	c.cleanup(context.Background())

	if len(cleaner.before) != 2 {
		t.Fatalf("expected 2 cleanup calls, got %d", len(cleaner.before))
	}
	want := now.Add(-48 * time.Hour)
	if !cleaner.before[0].Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, cleaner.before[0])
	}
}

func TestImportJobCleanupSweepsStaleJobsAndPreviews(t *testing.T) {
	cleaner := &fakeCleaner{err: errors.New("db down")}
	c := NewImportJobCleanup(cleaner, logger.Discard(), time.Minute, time.Hour)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.cleanup(context.Background())

	if len(cleaner.staleBefore) != 1 || len(cleaner.before) != 1 || cleaner.previews != 1 {
		t.Fatalf("every sweep should run even when one fails: stale=%d finished=%d previews=%d",
			len(cleaner.staleBefore), len(cleaner.before), cleaner.previews)
	}
	if want := now.Add(-staleImportAfter); !cleaner.staleBefore[0].Equal(want) {
		t.Fatalf("expected stale cutoff %s, got %s", want, cleaner.staleBefore[0])
	}
	if staleImportAfter <= importJobTimeout {
		t.Fatalf("stale cutoff must exceed the task timeout")
	}
}

func TestImportJobCleanupDefaults(t *testing.T) {
	c := NewImportJobCleanup(&fakeCleaner{}, logger.Discard(), 0, 0)
	if c.interval != defaultImportJobCleanupInterval || c.retention != defaultImportJobRetention {
		t.Fatalf("unexpected defaults: %s %s", c.interval, c.retention)
	}
}
