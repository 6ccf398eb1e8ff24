package imports

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leadboard_backend/internal/imports/transport"
	"leadboard_backend/platform/apperr"

	"github.com/google/uuid"
)

type scriptedSource struct {
	mu    sync.Mutex
	steps []func() (transport.JobResponse, error)
	calls int
}

func (s *scriptedSource) PollImportJob(context.Context, uuid.UUID) (transport.JobResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	return s.steps[i]()
}

func snapshot(status string, processed int) func() (transport.JobResponse, error) {
	return func() (transport.JobResponse, error) {
		return transport.JobResponse{Status: status, Processed: processed, TotalRows: 10}, nil
	}
}

func failing(err error) func() (transport.JobResponse, error) {
	return func() (transport.JobResponse, error) { return transport.JobResponse{}, err }
}

func TestWaitStopsAfterTerminalAndFinalFetch(t *testing.T) {
	source := &scriptedSource{steps: []func() (transport.JobResponse, error){
		snapshot("pending", 0),
		snapshot("processing", 4),
		snapshot("completed", 10),
		snapshot("completed", 10),
		failing(errors.New("polled after the final fetch")),
	}}
	p := NewPoller(source, time.Millisecond)

	var seen []string
	final, err := p.Wait(context.Background(), uuid.New(), func(s transport.JobResponse) { seen = append(seen, s.Status) })
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if final.Status != "completed" || final.Processed != 10 {
		t.Fatalf("unexpected final snapshot: %+v", final)
	}
	if source.calls != 4 {
		t.Fatalf("expected 4 polls, got %d", source.calls)
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 progress callbacks, got %v", seen)
	}
}

func TestWaitToleratesTransientFailures(t *testing.T) {
	source := &scriptedSource{steps: []func() (transport.JobResponse, error){
		snapshot("processing", 2),
		failing(apperr.Transient("gateway timeout", nil)),
		failing(apperr.Transient("gateway timeout", nil)),
		snapshot("failed", 5),
	}}
	p := NewPoller(source, time.Millisecond)

	final, err := p.Wait(context.Background(), uuid.New(), nil)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if final.Status != "failed" {
		t.Fatalf("expected failed snapshot, got %+v", final)
	}
}

func TestWaitGivesUpOnPermanentError(t *testing.T) {
	source := &scriptedSource{steps: []func() (transport.JobResponse, error){
		snapshot("processing", 2),
		failing(apperr.NotFound("import job not found")),
	}}
	p := NewPoller(source, time.Millisecond)

	last, err := p.Wait(context.Background(), uuid.New(), nil)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if last.Processed != 2 {
		t.Fatalf("expected last good snapshot, got %+v", last)
	}
}

func TestWaitCancelDetachesObserver(t *testing.T) {
	source := &scriptedSource{steps: []func() (transport.JobResponse, error){
		snapshot("processing", 3),
	}}
	p := NewPoller(source, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	last, err := p.Wait(ctx, uuid.New(), func(transport.JobResponse) { cancel() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if last.Status != "processing" || last.Processed != 3 {
		t.Fatalf("expected last snapshot to be returned, got %+v", last)
	}
}
