package watcher

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/advox/portal-sync-worker/internal/config"
	"github.com/advox/portal-sync-worker/internal/models"
	"github.com/advox/portal-sync-worker/internal/repository"
)

// Queue is the consuming side of the durable job queue.
type Queue interface {
	Claim(ctx context.Context, limit int) ([]models.SyncQueueJob, error)
	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID, lastError string) error
	Stats(ctx context.Context) (repository.QueueStats, error)
}

// Processor executes one claimed job.
type Processor interface {
	ProcessSyncJob(ctx context.Context, queueJobID string, job models.SyncJob) error
}

// StatePurger removes expired sync state rows.
type StatePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

const purgeInterval = time.Hour

// Watcher polls the queue and dispatches claimed jobs to the processor with
// bounded parallelism. It also runs the periodic purge of expired sync state.
type Watcher struct {
	cfg       *config.Config
	queue     Queue
	processor Processor
	states    StatePurger

	sem chan struct{}
	wg  sync.WaitGroup
}

func New(cfg *config.Config, queue Queue, processor Processor, states StatePurger) *Watcher {
	concurrency := cfg.SyncConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Watcher{
		cfg:       cfg,
		queue:     queue,
		processor: processor,
		states:    states,
		sem:       make(chan struct{}, concurrency),
	}
}

// Start begins polling for queued sync jobs until the context is cancelled,
// then drains in-flight jobs before returning.
func (w *Watcher) Start(ctx context.Context) error {
	log.Printf("Starting sync watcher (concurrency: %d, poll interval: %ds)...",
		cap(w.sem), w.cfg.PollInterval)

	// Jobs and their acks run detached from the poll-loop context: a
	// shutdown must drain in-flight attempts to a terminal state, not
	// cancel their store writes mid-flight.
	jobCtx := context.WithoutCancel(ctx)

	// Pick up anything left over from previous runs right away.
	w.claimAndDispatch(ctx, jobCtx)

	ticker := time.NewTicker(time.Duration(w.cfg.PollInterval) * time.Second)
	defer ticker.Stop()

	lastPurge := time.Now()

	for {
		select {
		case <-ctx.Done():
			log.Println("Sync watcher shutting down, draining in-flight jobs...")
			w.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			w.claimAndDispatch(ctx, jobCtx)

			if time.Since(lastPurge) >= purgeInterval {
				lastPurge = time.Now()
				w.purgeExpired(ctx)
				w.logStats(ctx)
			}
		}
	}
}

func (w *Watcher) claimAndDispatch(ctx, jobCtx context.Context) {
	free := cap(w.sem) - len(w.sem)
	if free == 0 {
		return
	}

	jobs, err := w.queue.Claim(ctx, free)
	if err != nil {
		log.Printf("Error claiming sync jobs: %v", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	log.Printf("Claimed %d sync job(s)", len(jobs))

	for _, row := range jobs {
		w.sem <- struct{}{}
		w.wg.Add(1)
		go w.runJob(jobCtx, row)
	}
}

func (w *Watcher) runJob(ctx context.Context, row models.SyncQueueJob) {
	defer w.wg.Done()
	defer func() { <-w.sem }()
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Panic processing sync job %s: %v", row.ID, rec)
			if err := w.queue.MarkFailed(ctx, row.ID, fmt.Sprintf("panic: %v", rec)); err != nil {
				log.Printf("Error marking panicked job %s failed: %v", row.ID, err)
			}
		}
	}()

	if err := w.processor.ProcessSyncJob(ctx, row.ID, row.Job()); err != nil {
		log.Printf("Failed to process sync job %s (sync: %s): %v", row.ID, row.SyncID, err)
		if markErr := w.queue.MarkFailed(ctx, row.ID, err.Error()); markErr != nil {
			log.Printf("Error marking job %s failed: %v", row.ID, markErr)
		}
		return
	}

	if err := w.queue.MarkCompleted(ctx, row.ID); err != nil {
		log.Printf("Error marking job %s completed: %v", row.ID, err)
	}
}

func (w *Watcher) purgeExpired(ctx context.Context) {
	purged, err := w.states.PurgeExpired(ctx)
	if err != nil {
		log.Printf("Error purging expired sync state: %v", err)
		return
	}
	if purged > 0 {
		log.Printf("Purged %d expired sync state row(s)", purged)
	}
}

func (w *Watcher) logStats(ctx context.Context) {
	stats, err := w.queue.Stats(ctx)
	if err != nil {
		log.Printf("Error reading queue stats: %v", err)
		return
	}
	log.Printf("Queue stats: waiting=%d active=%d completed=%d failed=%d delayed=%d",
		stats.Waiting, stats.Active, stats.Completed, stats.Failed, stats.Delayed)
}
