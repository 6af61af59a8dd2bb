package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/advox/portal-sync-worker/internal/models"
)

const (
	// Records expire after 7 days without a save.
	syncStateTTL = 7 * 24 * time.Hour

	// MaxHistoryItems bounds the per-actor attempt history.
	MaxHistoryItems = 20
)

// SyncStateRepository persists synchronization attempt state together with
// the two secondary indexes: the per-actor latest pointer and the bounded
// per-actor history list.
type SyncStateRepository struct {
	db *gorm.DB
}

func NewSyncStateRepository(db *gorm.DB) *SyncStateRepository {
	return &SyncStateRepository{db: db}
}

// Save writes the state record, repoints the actor's latest pointer, moves
// the syncId to the front of the actor's history and trims it to
// MaxHistoryItems, all in one transaction with a shared TTL refresh.
func (r *SyncStateRepository) Save(ctx context.Context, state *models.SyncState) error {
	if state.SyncID == "" || state.TenantID == "" || state.UsuarioID == "" {
		return fmt.Errorf("sync state missing identity fields")
	}

	now := time.Now()
	state.ExpiresAt = now.Add(syncStateTTL)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sync_id"}},
			UpdateAll: true,
		}).Create(state).Error; err != nil {
			return fmt.Errorf("failed to upsert sync state: %w", err)
		}

		latest := models.SyncLatest{
			TenantID:  state.TenantID,
			UsuarioID: state.UsuarioID,
			SyncID:    state.SyncID,
			UpdatedAt: now,
			ExpiresAt: state.ExpiresAt,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "usuario_id"}},
			UpdateAll: true,
		}).Create(&latest).Error; err != nil {
			return fmt.Errorf("failed to update latest pointer: %w", err)
		}

		// Upserting saved_at moves an already-listed syncId to the front
		// instead of duplicating it.
		entry := models.SyncHistoryEntry{
			TenantID:  state.TenantID,
			UsuarioID: state.UsuarioID,
			SyncID:    state.SyncID,
			SavedAt:   now,
			ExpiresAt: state.ExpiresAt,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "usuario_id"}, {Name: "sync_id"}},
			UpdateAll: true,
		}).Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to update history entry: %w", err)
		}

		trim := `
			DELETE FROM sync_history
			WHERE tenant_id = ? AND usuario_id = ?
			  AND sync_id NOT IN (
				SELECT sync_id FROM sync_history
				WHERE tenant_id = ? AND usuario_id = ?
				ORDER BY saved_at DESC
				LIMIT ?
			  )
		`
		if err := tx.Exec(trim,
			state.TenantID, state.UsuarioID,
			state.TenantID, state.UsuarioID,
			MaxHistoryItems,
		).Error; err != nil {
			return fmt.Errorf("failed to trim history: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save sync state %s: %w", state.SyncID, err)
	}

	return nil
}

// Get loads one state by syncId. Expired or malformed records read as absent.
func (r *SyncStateRepository) Get(ctx context.Context, syncID string) (*models.SyncState, error) {
	var state models.SyncState
	err := r.db.WithContext(ctx).
		Where("sync_id = ? AND expires_at > ?", syncID, time.Now()).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}
	if !validState(state) {
		return nil, nil
	}
	return &state, nil
}

// GetLatest resolves the actor's latest pointer and loads the referenced
// state. Returns nil when no pointer exists or the state has expired.
func (r *SyncStateRepository) GetLatest(ctx context.Context, tenantID, usuarioID string) (*models.SyncState, error) {
	var latest models.SyncLatest
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND usuario_id = ? AND expires_at > ?", tenantID, usuarioID, time.Now()).
		First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve latest pointer: %w", err)
	}
	return r.Get(ctx, latest.SyncID)
}

// ListHistory loads up to limit states from the actor's history, newest
// first. Entries whose state expired or no longer parses are dropped rather
// than surfaced as errors, so partial TTL expiry never breaks the read path.
func (r *SyncStateRepository) ListHistory(ctx context.Context, tenantID, usuarioID string, limit int) ([]models.SyncState, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxHistoryItems {
		limit = MaxHistoryItems
	}

	now := time.Now()

	var entries []models.SyncHistoryEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND usuario_id = ? AND expires_at > ?", tenantID, usuarioID, now).
		Order("saved_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list history entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	syncIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		syncIDs = append(syncIDs, entry.SyncID)
	}

	var states []models.SyncState
	err = r.db.WithContext(ctx).
		Where("sync_id IN ? AND expires_at > ?", syncIDs, now).
		Find(&states).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history states: %w", err)
	}

	valid := states[:0]
	for _, state := range states {
		if validState(state) {
			valid = append(valid, state)
		}
	}
	sort.Slice(valid, func(i, j int) bool {
		return valid[i].UpdatedAt.After(valid[j].UpdatedAt)
	})

	return valid, nil
}

// PurgeExpired removes expired rows from the state table and both indexes.
// Reads already filter on expires_at; this reclaims the storage.
func (r *SyncStateRepository) PurgeExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	var purged int64

	for _, model := range []interface{}{
		&models.SyncState{},
		&models.SyncLatest{},
		&models.SyncHistoryEntry{},
	} {
		result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(model)
		if result.Error != nil {
			return purged, fmt.Errorf("failed to purge expired sync records: %w", result.Error)
		}
		purged += result.RowsAffected
	}

	return purged, nil
}

func validState(state models.SyncState) bool {
	return state.SyncID != "" && state.TenantID != "" && state.UsuarioID != ""
}
