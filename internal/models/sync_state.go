package models

import "time"

type SyncStatus string

const (
	SyncStatusQueued         SyncStatus = "QUEUED"
	SyncStatusRunning        SyncStatus = "RUNNING"
	SyncStatusWaitingCaptcha SyncStatus = "WAITING_CAPTCHA"
	SyncStatusCompleted      SyncStatus = "COMPLETED"
	SyncStatusFailed         SyncStatus = "FAILED"
)

type SyncMode string

const (
	SyncModeInitial SyncMode = "INITIAL"
	SyncModeCaptcha SyncMode = "CAPTCHA"
)

// MaxProcessosNumeros bounds the case-number list kept on a state record.
const MaxProcessosNumeros = 50

// SyncState is the durable record of one portal synchronization attempt.
// Identity fields are copied from the originating job and never change;
// everything else is driven through WithSyncStatus.
type SyncState struct {
	SyncID           string     `gorm:"column:sync_id;primaryKey"`
	TenantID         string     `gorm:"column:tenant_id;index"`
	UsuarioID        string     `gorm:"column:usuario_id;index"`
	AdvogadoID       *string    `gorm:"column:advogado_id"`
	TribunalSigla    string     `gorm:"column:tribunal_sigla"`
	OAB              string     `gorm:"column:oab"`
	Status           SyncStatus `gorm:"column:status;index"`
	Mode             SyncMode   `gorm:"column:mode"`
	QueueJobID       string     `gorm:"column:queue_job_id"`
	SyncedCount      int        `gorm:"column:synced_count"`
	CreatedCount     int        `gorm:"column:created_count"`
	UpdatedCount     int        `gorm:"column:updated_count"`
	ProcessosNumeros StringList `gorm:"column:processos_numeros;type:jsonb"`
	Error            *string    `gorm:"column:error"`
	CaptchaID        *string    `gorm:"column:captcha_id"`
	CaptchaImage     *string    `gorm:"column:captcha_image"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	StartedAt        *time.Time `gorm:"column:started_at"`
	FinishedAt       *time.Time `gorm:"column:finished_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
	ExpiresAt        time.Time  `gorm:"column:expires_at;index"`
}

// TableName specifies the table name for GORM
func (SyncState) TableName() string {
	return "sync_state"
}

type InitialSyncStateParams struct {
	SyncID        string
	TenantID      string
	UsuarioID     string
	AdvogadoID    *string
	TribunalSigla string
	OAB           string
	Mode          SyncMode
}

// BuildInitialSyncState produces a QUEUED state with zeroed counters.
func BuildInitialSyncState(params InitialSyncStateParams) SyncState {
	now := time.Now()
	mode := params.Mode
	if mode == "" {
		mode = SyncModeInitial
	}

	return SyncState{
		SyncID:           params.SyncID,
		TenantID:         params.TenantID,
		UsuarioID:        params.UsuarioID,
		AdvogadoID:       params.AdvogadoID,
		TribunalSigla:    params.TribunalSigla,
		OAB:              params.OAB,
		Status:           SyncStatusQueued,
		Mode:             mode,
		ProcessosNumeros: StringList{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// SyncTransition carries the fields a status transition may set. Which fields
// are honored depends on the target status; see WithSyncStatus.
type SyncTransition struct {
	Mode             SyncMode
	QueueJobID       string
	Error            string
	CaptchaID        string
	CaptchaImage     string
	SyncedCount      int
	CreatedCount     int
	UpdatedCount     int
	ProcessosNumeros []string
}

// WithSyncStatus returns a new state with the transition applied. The input is
// never mutated. startedAt is set once, on the first transition into RUNNING;
// finishedAt is set on COMPLETED or FAILED.
func WithSyncStatus(state SyncState, status SyncStatus, tr SyncTransition) SyncState {
	now := time.Now()

	next := state
	next.ProcessosNumeros = append(StringList{}, state.ProcessosNumeros...)
	next.Status = status
	next.UpdatedAt = now

	if status == SyncStatusRunning && next.StartedAt == nil {
		startedAt := now
		next.StartedAt = &startedAt
	}
	if status == SyncStatusCompleted || status == SyncStatusFailed {
		finishedAt := now
		next.FinishedAt = &finishedAt
	}

	switch status {
	case SyncStatusRunning:
		// A fresh attempt clears whatever the previous one left behind.
		next.Error = nil
		next.CaptchaID = nil
		next.CaptchaImage = nil
		if tr.Mode != "" {
			next.Mode = tr.Mode
		}
		if tr.QueueJobID != "" {
			next.QueueJobID = tr.QueueJobID
		}

	case SyncStatusWaitingCaptcha:
		// The error field doubles as the display hint for the challenge.
		if tr.Error != "" {
			next.Error = strPtr(tr.Error)
		}
		if tr.CaptchaID != "" {
			next.CaptchaID = strPtr(tr.CaptchaID)
		}
		if tr.CaptchaImage != "" {
			next.CaptchaImage = strPtr(tr.CaptchaImage)
		}

	case SyncStatusCompleted:
		next.Error = nil
		next.CaptchaID = nil
		next.CaptchaImage = nil
		next.SyncedCount = tr.SyncedCount
		next.CreatedCount = tr.CreatedCount
		next.UpdatedCount = tr.UpdatedCount
		next.ProcessosNumeros = capNumeros(tr.ProcessosNumeros)

	case SyncStatusFailed:
		next.CaptchaID = nil
		next.CaptchaImage = nil
		if tr.Error != "" {
			next.Error = strPtr(tr.Error)
		}
	}

	return next
}

func capNumeros(numeros []string) StringList {
	capped := make(StringList, 0, len(numeros))
	for _, numero := range numeros {
		if numero == "" {
			continue
		}
		capped = append(capped, numero)
		if len(capped) == MaxProcessosNumeros {
			break
		}
	}
	return capped
}

func strPtr(v string) *string {
	return &v
}
