package gorm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mealprep/recommender/internal/ports/outbound"
	"gorm.io/gorm"
)

// AuditRepository persists operation audit events using GORM
type AuditRepository struct {
	db *gorm.DB
}

var _ outbound.AuditRepository = (*AuditRepository)(nil)

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Save appends an audit record
func (r *AuditRepository) Save(ctx context.Context, rec outbound.AuditRecord) error {
	if err := r.db.WithContext(ctx).Create(AuditRecordToModel(rec)).Error; err != nil {
		return fmt.Errorf("save audit event: %w", err)
	}
	return nil
}

// FindByOperation returns the events of one operation in occurrence order
func (r *AuditRepository) FindByOperation(ctx context.Context, operationID uuid.UUID) ([]AuditEventModel, error) {
	var events []AuditEventModel
	result := r.db.WithContext(ctx).
		Where("operation_id = ?", operationID).
		Order("occurred_at ASC").
		Find(&events)
	if result.Error != nil {
		return nil, fmt.Errorf("find audit events: %w", result.Error)
	}
	return events, nil
}
