package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/advox/portal-sync-worker/internal/models"
)

type AdvogadoRepository struct {
	db *gorm.DB
}

func NewAdvogadoRepository(db *gorm.DB) *AdvogadoRepository {
	return &AdvogadoRepository{db: db}
}

// GetByID loads an attorney scoped to the tenant; nil when absent.
func (r *AdvogadoRepository) GetByID(ctx context.Context, tenantID, advogadoID string) (*models.Advogado, error) {
	var advogado models.Advogado
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", advogadoID, tenantID).
		First(&advogado).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get advogado: %w", err)
	}
	return &advogado, nil
}
