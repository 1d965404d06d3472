package repository

import (
	"context"
	"time"

	"github.com/yinan077/PassGate/internal/app/model"
	"gorm.io/gorm"
)

// VisitEventRepository defines the data access contract for gate visit events.
type VisitEventRepository interface {
	Create(ctx context.Context, event *model.VisitEvent) error
	ListByVisitor(ctx context.Context, vuid string, limit int) ([]model.VisitEvent, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

type visitEventRepository struct {
	db *gorm.DB
}

// NewVisitEventRepository returns a GORM-backed VisitEventRepository.
func NewVisitEventRepository(db *gorm.DB) VisitEventRepository {
	return &visitEventRepository{db: db}
}

func (r *visitEventRepository) Create(ctx context.Context, event *model.VisitEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *visitEventRepository) ListByVisitor(ctx context.Context, vuid string, limit int) ([]model.VisitEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var result []model.VisitEvent
	if err := r.db.WithContext(ctx).
		Where("visitor_uuid = ?", vuid).
		Order("timestamp DESC").
		Limit(limit).
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *visitEventRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("timestamp < ?", before).
		Delete(&model.VisitEvent{})
	return result.RowsAffected, result.Error
}
