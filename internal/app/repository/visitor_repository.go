package repository

import (
	"context"
	"errors"

	"github.com/yinan077/PassGate/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrVisitorNotFound signals that no pass exists for the given identifier.
	ErrVisitorNotFound = errors.New("visitor not found")
)

// VisitorRepository is the persistence contract the pass logic requires:
// create, fetch, field-level update, atomic visit increment and refresh.
type VisitorRepository interface {
	Create(ctx context.Context, visitor *model.Visitor) error
	GetByUUID(ctx context.Context, vuid string) (*model.Visitor, error)
	List(ctx context.Context, limit, offset int) ([]model.Visitor, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	IncrementVisits(ctx context.Context, id uint) error
	Refresh(ctx context.Context, visitor *model.Visitor) error
}

type visitorRepository struct {
	db *gorm.DB
}

// NewVisitorRepository returns a GORM-backed VisitorRepository.
func NewVisitorRepository(db *gorm.DB) VisitorRepository {
	return &visitorRepository{db: db}
}

func (r *visitorRepository) Create(ctx context.Context, visitor *model.Visitor) error {
	if err := r.db.WithContext(ctx).Create(visitor).Error; err != nil {
		return err
	}
	return nil
}

func (r *visitorRepository) GetByUUID(ctx context.Context, vuid string) (*model.Visitor, error) {
	var visitor model.Visitor
	if err := r.db.WithContext(ctx).Where("uuid = ?", vuid).First(&visitor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVisitorNotFound
		}
		return nil, err
	}
	return &visitor, nil
}

func (r *visitorRepository) List(ctx context.Context, limit, offset int) ([]model.Visitor, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var result []model.Visitor
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *visitorRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.Visitor{}).
		Where("id = ?", id).
		Updates(fields)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVisitorNotFound
	}
	return nil
}

func (r *visitorRepository) IncrementVisits(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&model.Visitor{}).
		Where("id = ?", id).
		Update("visits_count", gorm.Expr("visits_count + 1"))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVisitorNotFound
	}
	return nil
}

func (r *visitorRepository) Refresh(ctx context.Context, visitor *model.Visitor) error {
	if err := r.db.WithContext(ctx).First(visitor, "id = ?", visitor.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrVisitorNotFound
		}
		return err
	}
	return nil
}
