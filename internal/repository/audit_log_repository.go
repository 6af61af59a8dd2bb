package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/advox/portal-sync-worker/internal/models"
)

// AuditLogRepository is the append-only audit sink for sync outcomes.
type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

type SyncAuditParams struct {
	TenantID         string
	UsuarioID        string
	SyncID           string
	TribunalSigla    string
	OAB              string
	Status           models.SyncAuditStatus
	Origem           models.SyncAuditOrigem
	SyncedCount      int
	CreatedCount     int
	UpdatedCount     int
	ProcessosNumeros []string
	Error            string
}

// CreateSyncAudit appends one outcome row. Written exactly once per worker
// invocation outcome, including captcha pauses.
func (r *AuditLogRepository) CreateSyncAudit(ctx context.Context, params SyncAuditParams) error {
	numeros := params.ProcessosNumeros
	if len(numeros) > models.MaxProcessosNumeros {
		numeros = numeros[:models.MaxProcessosNumeros]
	}
	if numeros == nil {
		numeros = []string{}
	}

	var errValue interface{}
	if params.Error != "" {
		errValue = params.Error
	}

	entry := models.AuditLog{
		ID:        uuid.New().String(),
		TenantID:  params.TenantID,
		UsuarioID: params.UsuarioID,
		Acao:      models.AuditAcaoSincronizacaoOAB,
		Entidade:  "Processo",
		Dados: models.JSONB{
			"origem":           string(params.Origem),
			"status":           string(params.Status),
			"syncId":           params.SyncID,
			"tribunalSigla":    params.TribunalSigla,
			"oab":              params.OAB,
			"syncedCount":      params.SyncedCount,
			"createdCount":     params.CreatedCount,
			"updatedCount":     params.UpdatedCount,
			"processosNumeros": numeros,
			"error":            errValue,
		},
		ChangedFields: models.StringList{},
	}

	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to create sync audit entry: %w", err)
	}
	return nil
}

// ListSyncAudits returns the tenant's most recent sync outcomes, newest
// first. Limit is clamped to 1..30.
func (r *AuditLogRepository) ListSyncAudits(ctx context.Context, tenantID string, limit int) ([]models.AuditLog, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 30 {
		limit = 30
	}

	var entries []models.AuditLog
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND acao = ?", tenantID, models.AuditAcaoSincronizacaoOAB).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sync audits: %w", err)
	}
	return entries, nil
}
