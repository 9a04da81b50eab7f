package transactions

import (
	"context"
	"time"

	"github.com/YuniorRivera/remesas-haiti-backend/pkg/db/models"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PayoutDetails carries the optional fields a PAID notification may supply.
// Nil fields are left untouched so a sparse notification never erases data.
type PayoutDetails struct {
	OperatorID *string
	ReceiptNum *string
	Lat        *float64
	Lon        *float64
	Address    *string
	City       *string
}

// Repository manages persistence for remittance transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByReferenceCode(ctx context.Context, referenceCode string) (*models.Transaction, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindInWindow(ctx context.Context, from, to time.Time) ([]models.Transaction, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, details PayoutDetails) (int64, error)
	MarkSettled(ctx context.Context, id uuid.UUID, settledAt time.Time) (int64, error)
	MarkFailed(ctx context.Context, id uuid.UUID, failedAt time.Time, reason *string) (int64, error)
	Create(ctx context.Context, txn *models.Transaction) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transaction repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByReferenceCode(ctx context.Context, referenceCode string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Where("reference_code = ?", referenceCode).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// FindInWindow returns every transaction created inside the inclusive window.
func (r *repository) FindInWindow(ctx context.Context, from, to time.Time) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at <= ?", from, to).
		Order("created_at ASC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// MarkPaid transitions CREATED/CONFIRMED to PAID. The state precondition lives
// in the WHERE clause so concurrent deliveries cannot both win; callers read
// the affected-row count to tell a conflict from success.
func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, details PayoutDetails) (int64, error) {
	updates := map[string]any{
		"state":   enums.TransactionStatePaid,
		"paid_at": paidAt,
	}
	if details.OperatorID != nil {
		updates["payout_operator_id"] = *details.OperatorID
	}
	if details.ReceiptNum != nil {
		updates["payout_receipt_num"] = *details.ReceiptNum
	}
	if details.Lat != nil {
		updates["payout_lat"] = *details.Lat
	}
	if details.Lon != nil {
		updates["payout_lon"] = *details.Lon
	}
	if details.Address != nil {
		updates["payout_address"] = *details.Address
	}
	if details.City != nil {
		updates["payout_city"] = *details.City
	}

	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND state IN ?", id, []enums.TransactionState{
			enums.TransactionStateCreated,
			enums.TransactionStateConfirmed,
		}).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// MarkSettled stamps settled_at on a PAID transaction; state is unchanged.
// The settled_at IS NULL guard makes replays a no-op.
func (r *repository) MarkSettled(ctx context.Context, id uuid.UUID, settledAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND state = ? AND settled_at IS NULL", id, enums.TransactionStatePaid).
		Update("settled_at", settledAt)
	return res.RowsAffected, res.Error
}

// MarkFailed transitions CONFIRMED/PAID to the terminal FAILED state.
func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, failedAt time.Time, reason *string) (int64, error) {
	updates := map[string]any{
		"state":     enums.TransactionStateFailed,
		"failed_at": failedAt,
	}
	if reason != nil {
		updates["failure_reason"] = *reason
	}
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND state IN ?", id, []enums.TransactionState{
			enums.TransactionStateConfirmed,
			enums.TransactionStatePaid,
		}).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) Create(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}
