package models

import "time"

// AuditAcaoSincronizacaoOAB tags every audit row written by the sync pipeline.
const AuditAcaoSincronizacaoOAB = "SINCRONIZACAO_INICIAL_OAB_PROCESSOS"

type SyncAuditStatus string

const (
	AuditStatusSucesso         SyncAuditStatus = "SUCESSO"
	AuditStatusErro            SyncAuditStatus = "ERRO"
	AuditStatusPendenteCaptcha SyncAuditStatus = "PENDENTE_CAPTCHA"
)

type SyncAuditOrigem string

const (
	AuditOrigemBackgroundInitial SyncAuditOrigem = "BACKGROUND_INITIAL"
	AuditOrigemBackgroundCaptcha SyncAuditOrigem = "BACKGROUND_CAPTCHA"
)

// AuditLog is one append-only row per worker outcome. Rows are written once
// and never mutated.
type AuditLog struct {
	ID            string     `gorm:"column:id;primaryKey"`
	TenantID      string     `gorm:"column:tenant_id;index"`
	UsuarioID     string     `gorm:"column:usuario_id;index"`
	Acao          string     `gorm:"column:acao;index"`
	Entidade      string     `gorm:"column:entidade"`
	Dados         JSONB      `gorm:"column:dados;type:jsonb"`
	ChangedFields StringList `gorm:"column:changed_fields;type:jsonb"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (AuditLog) TableName() string {
	return "audit_log"
}
