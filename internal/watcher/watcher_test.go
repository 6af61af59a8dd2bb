package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/advox/portal-sync-worker/internal/config"
	"github.com/advox/portal-sync-worker/internal/models"
	"github.com/advox/portal-sync-worker/internal/repository"
)

type mockQueue struct {
	mu        sync.Mutex
	claimFunc func(ctx context.Context, limit int) ([]models.SyncQueueJob, error)
	completed []string
	failed    map[string]string
}

func newMockQueue() *mockQueue {
	return &mockQueue{failed: make(map[string]string)}
}

func (m *mockQueue) Claim(ctx context.Context, limit int) ([]models.SyncQueueJob, error) {
	if m.claimFunc != nil {
		return m.claimFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockQueue) MarkCompleted(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, jobID)
	return nil
}

func (m *mockQueue) MarkFailed(ctx context.Context, jobID, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[jobID] = lastError
	return nil
}

func (m *mockQueue) Stats(ctx context.Context) (repository.QueueStats, error) {
	return repository.QueueStats{}, nil
}

type mockProcessor struct {
	processFunc func(ctx context.Context, queueJobID string, job models.SyncJob) error
}

func (m *mockProcessor) ProcessSyncJob(ctx context.Context, queueJobID string, job models.SyncJob) error {
	if m.processFunc != nil {
		return m.processFunc(ctx, queueJobID, job)
	}
	return nil
}

type mockPurger struct{}

func (m *mockPurger) PurgeExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{PollInterval: 1, SyncConcurrency: 2}
}

func queueJob(id string) models.SyncQueueJob {
	return models.SyncQueueJob{
		ID:            id,
		SyncID:        "sync-" + id,
		TenantID:      "tenant-1",
		UsuarioID:     "user-1",
		TribunalSigla: "TJSP",
		OAB:           "123456SP",
		Mode:          models.SyncModeInitial,
	}
}

func TestRunJob_SuccessAcksCompleted(t *testing.T) {
	queue := newMockQueue()
	w := New(testConfig(), queue, &mockProcessor{}, &mockPurger{})

	w.sem <- struct{}{}
	w.wg.Add(1)
	w.runJob(context.Background(), queueJob("job-1"))

	if len(queue.completed) != 1 || queue.completed[0] != "job-1" {
		t.Errorf("expected job-1 marked completed, got %v", queue.completed)
	}
	if len(queue.failed) != 0 {
		t.Errorf("expected no failed jobs, got %v", queue.failed)
	}
	if len(w.sem) != 0 {
		t.Error("expected semaphore slot released")
	}
}

func TestRunJob_ErrorAcksFailed(t *testing.T) {
	queue := newMockQueue()
	processor := &mockProcessor{
		processFunc: func(ctx context.Context, queueJobID string, job models.SyncJob) error {
			return errors.New("failed to persist running state: db down")
		},
	}
	w := New(testConfig(), queue, processor, &mockPurger{})

	w.sem <- struct{}{}
	w.wg.Add(1)
	w.runJob(context.Background(), queueJob("job-1"))

	if len(queue.completed) != 0 {
		t.Errorf("expected no completed jobs, got %v", queue.completed)
	}
	if queue.failed["job-1"] != "failed to persist running state: db down" {
		t.Errorf("expected failure recorded, got %v", queue.failed)
	}
}

func TestRunJob_PanicAcksFailed(t *testing.T) {
	queue := newMockQueue()
	processor := &mockProcessor{
		processFunc: func(ctx context.Context, queueJobID string, job models.SyncJob) error {
			panic("nil pointer somewhere")
		},
	}
	w := New(testConfig(), queue, processor, &mockPurger{})

	w.sem <- struct{}{}
	w.wg.Add(1)
	w.runJob(context.Background(), queueJob("job-1"))

	if queue.failed["job-1"] != "panic: nil pointer somewhere" {
		t.Errorf("expected panic recorded as failure, got %v", queue.failed)
	}
	if len(w.sem) != 0 {
		t.Error("expected semaphore slot released after panic")
	}
}

func TestStart_ClaimsPendingJobsAndStopsOnCancel(t *testing.T) {
	claimed := make(chan int, 1)
	queue := newMockQueue()
	queue.claimFunc = func(ctx context.Context, limit int) ([]models.SyncQueueJob, error) {
		select {
		case claimed <- limit:
		default:
		}
		return []models.SyncQueueJob{queueJob("job-1")}, nil
	}

	w := New(testConfig(), queue, &mockProcessor{}, &mockPurger{})

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Start(ctx)
	}()

	select {
	case limit := <-claimed:
		if limit != 2 {
			t.Errorf("expected claim limit 2 (full concurrency), got %d", limit)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never claimed jobs")
	}

	cancel()

	select {
	case err := <-errChan:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}

	queue.mu.Lock()
	defer queue.mu.Unlock()
	if len(queue.completed) == 0 {
		t.Error("expected the claimed job to be processed before shutdown")
	}
}

func TestStart_DrainLetsInFlightJobsFinish(t *testing.T) {
	queue := newMockQueue()
	var claims int
	queue.claimFunc = func(ctx context.Context, limit int) ([]models.SyncQueueJob, error) {
		queue.mu.Lock()
		defer queue.mu.Unlock()
		claims++
		if claims == 1 {
			return []models.SyncQueueJob{queueJob("job-1")}, nil
		}
		return nil, nil
	}

	started := make(chan struct{})
	release := make(chan struct{})
	jobCtxErr := make(chan error, 1)
	processor := &mockProcessor{
		processFunc: func(ctx context.Context, queueJobID string, job models.SyncJob) error {
			close(started)
			<-release
			jobCtxErr <- ctx.Err()
			return nil
		},
	}

	w := New(testConfig(), queue, processor, &mockPurger{})

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Start(ctx)
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job never started")
	}

	// Shut down while the job is still running, then let it finish.
	cancel()
	close(release)

	select {
	case err := <-errChan:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not drain and stop")
	}

	if err := <-jobCtxErr; err != nil {
		t.Errorf("expected in-flight job context to survive shutdown, got %v", err)
	}

	queue.mu.Lock()
	defer queue.mu.Unlock()
	if len(queue.completed) != 1 || queue.completed[0] != "job-1" {
		t.Errorf("expected in-flight job marked completed during drain, got completed=%v failed=%v",
			queue.completed, queue.failed)
	}
	if len(queue.failed) != 0 {
		t.Errorf("expected no failed jobs, got %v", queue.failed)
	}
}

func TestNew_ClampsConcurrency(t *testing.T) {
	cfg := &config.Config{PollInterval: 1, SyncConcurrency: 0}
	w := New(cfg, newMockQueue(), &mockProcessor{}, &mockPurger{})
	if cap(w.sem) != 1 {
		t.Errorf("expected concurrency clamped to 1, got %d", cap(w.sem))
	}
}
