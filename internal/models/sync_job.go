package models

import "time"

type QueueJobStatus string

const (
	QueueStatusWaiting   QueueJobStatus = "waiting"
	QueueStatusDelayed   QueueJobStatus = "delayed"
	QueueStatusActive    QueueJobStatus = "active"
	QueueStatusCompleted QueueJobStatus = "completed"
	QueueStatusFailed    QueueJobStatus = "failed"
)

// Queue priorities, lower runs first. Captcha resumptions outrank initial
// captures because a human is actively waiting on the answer.
const (
	PriorityCaptcha = 1
	PriorityInitial = 2
)

// SyncJob is the immutable request carried by one queue message.
type SyncJob struct {
	SyncID        string
	TenantID      string
	UsuarioID     string
	AdvogadoID    *string
	TribunalSigla string
	OAB           string
	ClienteNome   *string
	Mode          SyncMode
	CaptchaID     *string
	CaptchaText   *string
}

// SyncQueueJob is the durable queue row: the SyncJob payload plus delivery
// bookkeeping. Jobs get a single delivery attempt; a claimed row is never
// returned to waiting.
type SyncQueueJob struct {
	ID            string         `gorm:"column:id;primaryKey"`
	SyncID        string         `gorm:"column:sync_id;index"`
	TenantID      string         `gorm:"column:tenant_id;index"`
	UsuarioID     string         `gorm:"column:usuario_id"`
	AdvogadoID    *string        `gorm:"column:advogado_id"`
	TribunalSigla string         `gorm:"column:tribunal_sigla"`
	OAB           string         `gorm:"column:oab"`
	ClienteNome   *string        `gorm:"column:cliente_nome"`
	Mode          SyncMode       `gorm:"column:mode"`
	CaptchaID     *string        `gorm:"column:captcha_id"`
	CaptchaText   *string        `gorm:"column:captcha_text"`
	Priority      int            `gorm:"column:priority"`
	Status        QueueJobStatus `gorm:"column:status;index"`
	ScheduledAt   time.Time      `gorm:"column:scheduled_at"`
	ClaimedAt     *time.Time     `gorm:"column:claimed_at"`
	FinishedAt    *time.Time     `gorm:"column:finished_at"`
	LastError     *string        `gorm:"column:last_error"`
	CreatedAt     time.Time      `gorm:"column:created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (SyncQueueJob) TableName() string {
	return "sync_queue_job"
}

// Job extracts the message payload from a queue row.
func (q SyncQueueJob) Job() SyncJob {
	return SyncJob{
		SyncID:        q.SyncID,
		TenantID:      q.TenantID,
		UsuarioID:     q.UsuarioID,
		AdvogadoID:    q.AdvogadoID,
		TribunalSigla: q.TribunalSigla,
		OAB:           q.OAB,
		ClienteNome:   q.ClienteNome,
		Mode:          q.Mode,
		CaptchaID:     q.CaptchaID,
		CaptchaText:   q.CaptchaText,
	}
}
