package reconciliation

import (
	"context"

	"github.com/YuniorRivera/remesas-haiti-backend/pkg/db/models"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists reconciliation runs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, rec *models.Reconciliation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Reconciliation, error)
	List(ctx context.Context, limit, offset int) ([]models.Reconciliation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ReconciliationStatus) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, rec *models.Reconciliation) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Reconciliation, error) {
	var rec models.Reconciliation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]models.Reconciliation, error) {
	var out []models.Reconciliation
	q := r.db.WithContext(ctx).Order("processed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ReconciliationStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Reconciliation{}).
		Where("id = ?", id).
		Update("status", status)
	return res.RowsAffected, res.Error
}
