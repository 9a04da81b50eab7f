package events

import (
	"context"

	"github.com/YuniorRivera/remesas-haiti-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists audit events. The table is append-only: there are no
// update or delete methods on purpose.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.Event) error
	ListByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]models.Event, error)
	ListByReconciliationID(ctx context.Context, reconciliationID uuid.UUID) ([]models.Event, error)
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

func (r *repository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]models.Event, error) {
	var out []models.Event
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) ListByReconciliationID(ctx context.Context, reconciliationID uuid.UUID) ([]models.Event, error) {
	var out []models.Event
	err := r.db.WithContext(ctx).
		Where("reconciliation_id = ?", reconciliationID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
