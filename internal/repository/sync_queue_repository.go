package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/advox/portal-sync-worker/internal/models"
)

// SyncQueueRepository is the durable job queue: at-least-once submission,
// priority-ordered claim, single delivery attempt. A claimed job that is
// never acknowledged stays active; re-running a partially completed portal
// session risks duplicate side effects, so nothing here retries it.
type SyncQueueRepository struct {
	db *sql.DB
}

func NewSyncQueueRepository(db *sql.DB) *SyncQueueRepository {
	return &SyncQueueRepository{db: db}
}

type EnqueueOptions struct {
	Priority int
	Delay    time.Duration
}

// QueueStats is a point-in-time view of the queue for operational visibility.
type QueueStats struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Delayed   int `json:"delayed"`
}

// Enqueue inserts a job and returns its queue id. Broker failures surface
// synchronously to the caller; this never blocks on job completion.
func (r *SyncQueueRepository) Enqueue(ctx context.Context, job models.SyncJob, opts EnqueueOptions) (string, error) {
	priority := opts.Priority
	if priority == 0 {
		priority = models.PriorityInitial
	}

	now := time.Now()
	status := models.QueueStatusWaiting
	scheduledAt := now
	if opts.Delay > 0 {
		status = models.QueueStatusDelayed
		scheduledAt = now.Add(opts.Delay)
	}

	id := uuid.New().String()
	query := `
		INSERT INTO sync_queue_job (
			id, sync_id, tenant_id, usuario_id, advogado_id,
			tribunal_sigla, oab, cliente_nome, mode, captcha_id, captcha_text,
			priority, status, scheduled_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.ExecContext(ctx, query,
		id,
		job.SyncID,
		job.TenantID,
		job.UsuarioID,
		job.AdvogadoID,
		job.TribunalSigla,
		job.OAB,
		job.ClienteNome,
		job.Mode,
		job.CaptchaID,
		job.CaptchaText,
		priority,
		status,
		scheduledAt,
		now,
		now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue sync job: %w", err)
	}

	return id, nil
}

// Claim atomically flips up to limit due jobs to active and returns them,
// highest priority first. SKIP LOCKED keeps concurrent workers from claiming
// the same row; a job is delivered at most once.
func (r *SyncQueueRepository) Claim(ctx context.Context, limit int) ([]models.SyncQueueJob, error) {
	if limit <= 0 {
		return nil, nil
	}

	now := time.Now()
	query := `
		UPDATE sync_queue_job
		SET status = 'active', claimed_at = $1, updated_at = $1
		WHERE id IN (
			SELECT id FROM sync_queue_job
			WHERE status = 'waiting'
			   OR (status = 'delayed' AND scheduled_at <= $1)
			ORDER BY priority ASC, created_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, sync_id, tenant_id, usuario_id, advogado_id,
		          tribunal_sigla, oab, cliente_nome, mode, captcha_id, captcha_text,
		          priority, status, scheduled_at, claimed_at, finished_at, last_error,
		          created_at, updated_at
	`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim sync jobs: %w", err)
	}
	defer rows.Close()

	return r.scanJobs(rows)
}

// MarkCompleted acknowledges a delivered job.
func (r *SyncQueueRepository) MarkCompleted(ctx context.Context, jobID string) error {
	return r.finish(ctx, jobID, models.QueueStatusCompleted, nil)
}

// MarkFailed records a delivery whose outcome could not be processed.
func (r *SyncQueueRepository) MarkFailed(ctx context.Context, jobID, lastError string) error {
	return r.finish(ctx, jobID, models.QueueStatusFailed, &lastError)
}

func (r *SyncQueueRepository) finish(ctx context.Context, jobID string, status models.QueueJobStatus, lastError *string) error {
	query := `
		UPDATE sync_queue_job
		SET status = $1, last_error = $2, finished_at = $3, updated_at = $3
		WHERE id = $4
	`

	_, err := r.db.ExecContext(ctx, query, status, lastError, time.Now(), jobID)
	if err != nil {
		return fmt.Errorf("failed to mark sync job %s: %w", status, err)
	}
	return nil
}

// Stats returns per-status counts.
func (r *SyncQueueRepository) Stats(ctx context.Context) (QueueStats, error) {
	query := `SELECT status, COUNT(*) FROM sync_queue_job GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return QueueStats{}, fmt.Errorf("failed to query queue stats: %w", err)
	}
	defer rows.Close()

	var stats QueueStats
	for rows.Next() {
		var status models.QueueJobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return QueueStats{}, fmt.Errorf("failed to scan queue stats: %w", err)
		}

		switch status {
		case models.QueueStatusWaiting:
			stats.Waiting = count
		case models.QueueStatusActive:
			stats.Active = count
		case models.QueueStatusCompleted:
			stats.Completed = count
		case models.QueueStatusFailed:
			stats.Failed = count
		case models.QueueStatusDelayed:
			stats.Delayed = count
		}
	}
	if err := rows.Err(); err != nil {
		return QueueStats{}, fmt.Errorf("rows iteration error: %w", err)
	}

	return stats, nil
}

// scanJobs scans database rows into SyncQueueJob slice
func (r *SyncQueueRepository) scanJobs(rows *sql.Rows) ([]models.SyncQueueJob, error) {
	var jobs []models.SyncQueueJob

	for rows.Next() {
		var job models.SyncQueueJob
		err := rows.Scan(
			&job.ID,
			&job.SyncID,
			&job.TenantID,
			&job.UsuarioID,
			&job.AdvogadoID,
			&job.TribunalSigla,
			&job.OAB,
			&job.ClienteNome,
			&job.Mode,
			&job.CaptchaID,
			&job.CaptchaText,
			&job.Priority,
			&job.Status,
			&job.ScheduledAt,
			&job.ClaimedAt,
			&job.FinishedAt,
			&job.LastError,
			&job.CreatedAt,
			&job.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return jobs, nil
}
