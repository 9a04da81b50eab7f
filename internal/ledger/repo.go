package ledger

import (
	"context"

	"github.com/YuniorRivera/remesas-haiti-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists ledger accounts and double-entry lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAccountByCode(ctx context.Context, code string) (*models.LedgerAccount, error)
	CreateEntry(ctx context.Context, entry *models.LedgerEntry) error
	ListEntriesByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]models.LedgerEntry, error)
	CountEntriesByTransactionID(ctx context.Context, transactionID uuid.UUID) (int64, error)
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

func (r *repository) FindAccountByCode(ctx context.Context, code string) (*models.LedgerAccount, error) {
	var account models.LedgerAccount
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListEntriesByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) CountEntriesByTransactionID(ctx context.Context, transactionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error
	return count, err
}
