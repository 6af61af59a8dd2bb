package models

import "time"

// SyncLatest is the latest-pointer index: exactly one row per actor,
// referencing their most recently saved sync attempt.
type SyncLatest struct {
	TenantID  string    `gorm:"column:tenant_id;primaryKey"`
	UsuarioID string    `gorm:"column:usuario_id;primaryKey"`
	SyncID    string    `gorm:"column:sync_id"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
	ExpiresAt time.Time `gorm:"column:expires_at;index"`
}

// TableName specifies the table name for GORM
func (SyncLatest) TableName() string {
	return "sync_latest"
}

// SyncHistoryEntry is one slot of an actor's bounded attempt history.
// Re-saving an existing syncId refreshes saved_at, moving it to the front.
type SyncHistoryEntry struct {
	TenantID  string    `gorm:"column:tenant_id;primaryKey"`
	UsuarioID string    `gorm:"column:usuario_id;primaryKey"`
	SyncID    string    `gorm:"column:sync_id;primaryKey"`
	SavedAt   time.Time `gorm:"column:saved_at;index"`
	ExpiresAt time.Time `gorm:"column:expires_at;index"`
}

// TableName specifies the table name for GORM
func (SyncHistoryEntry) TableName() string {
	return "sync_history"
}
