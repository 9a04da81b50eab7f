package transactions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/YuniorRivera/remesas-haiti-backend/pkg/db/models"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/enums"
)

func setupRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE transactions (
  id TEXT PRIMARY KEY,
  reference_code TEXT NOT NULL UNIQUE,
  principal_amount NUMERIC NOT NULL,
  total_client_pays NUMERIC NOT NULL,
  payout_amount NUMERIC,
  source_currency TEXT NOT NULL DEFAULT 'USD',
  payout_currency TEXT NOT NULL DEFAULT 'HTG',
  state TEXT NOT NULL DEFAULT 'CREATED',
  agent_id TEXT,
  payout_operator_id TEXT,
  payout_receipt_num TEXT,
  payout_lat REAL,
  payout_lon REAL,
  payout_address TEXT,
  payout_city TEXT,
  failure_reason TEXT,
  created_at DATETIME,
  paid_at DATETIME,
  settled_at DATETIME,
  failed_at DATETIME
);`).Error)
	return db
}

func seedTransaction(t *testing.T, db *gorm.DB, state enums.TransactionState, createdAt time.Time) *models.Transaction {
	t.Helper()
	txn := &models.Transaction{
		ID:              uuid.New(),
		ReferenceCode:   "REM-" + uuid.NewString()[:8],
		PrincipalAmount: decimal.NewFromInt(500),
		TotalClientPays: decimal.NewFromInt(525),
		State:           state,
		CreatedAt:       createdAt,
	}
	require.NoError(t, db.Create(txn).Error)
	return txn
}

func strPtr(s string) *string { return &s }

func TestMarkPaid_StatePrecondition(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	allowed := map[enums.TransactionState]bool{
		enums.TransactionStateCreated:   true,
		enums.TransactionStateConfirmed: true,
		enums.TransactionStatePaid:      false,
		enums.TransactionStateFailed:    false,
	}
	for state, ok := range allowed {
		txn := seedTransaction(t, db, state, now)
		rows, err := repo.MarkPaid(ctx, txn.ID, now, PayoutDetails{})
		require.NoError(t, err)
		if ok {
			assert.Equal(t, int64(1), rows, "state %s should allow PAID", state)
		} else {
			assert.Zero(t, rows, "state %s must not allow PAID", state)
		}
	}
}

func TestMarkPaid_SparseDetailsPreserveExisting(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	txn := seedTransaction(t, db, enums.TransactionStateConfirmed, now)
	require.NoError(t, db.Model(txn).
		Updates(map[string]any{"payout_operator_id": "OP-1", "payout_city": "Cap-Haitien"}).Error)

	lat := 18.5392
	rows, err := repo.MarkPaid(ctx, txn.ID, now, PayoutDetails{
		ReceiptNum: strPtr("RCPT-42"),
		Lat:        &lat,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	var got models.Transaction
	require.NoError(t, db.Where("id = ?", txn.ID).First(&got).Error)
	assert.Equal(t, enums.TransactionStatePaid, got.State)
	require.NotNil(t, got.PaidAt)
	require.NotNil(t, got.PayoutOperatorID)
	assert.Equal(t, "OP-1", *got.PayoutOperatorID, "absent detail must not erase prior value")
	require.NotNil(t, got.PayoutCity)
	assert.Equal(t, "Cap-Haitien", *got.PayoutCity)
	require.NotNil(t, got.PayoutReceiptNum)
	assert.Equal(t, "RCPT-42", *got.PayoutReceiptNum)
	require.NotNil(t, got.PayoutLat)
	assert.InDelta(t, lat, *got.PayoutLat, 1e-9)
}

func TestMarkSettled_OnlyOnceAndOnlyFromPaid(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	created := seedTransaction(t, db, enums.TransactionStateCreated, now)
	rows, err := repo.MarkSettled(ctx, created.ID, now)
	require.NoError(t, err)
	assert.Zero(t, rows, "only PAID transactions settle")

	paid := seedTransaction(t, db, enums.TransactionStatePaid, now)
	rows, err = repo.MarkSettled(ctx, paid.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	var got models.Transaction
	require.NoError(t, db.Where("id = ?", paid.ID).First(&got).Error)
	assert.Equal(t, enums.TransactionStatePaid, got.State, "settlement stamps a timestamp, not a state")
	require.NotNil(t, got.SettledAt)

	rows, err = repo.MarkSettled(ctx, paid.ID, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, rows, "settled_at IS NULL guard makes the second write a no-op")

	var again models.Transaction
	require.NoError(t, db.Where("id = ?", paid.ID).First(&again).Error)
	assert.True(t, again.SettledAt.Equal(*got.SettledAt), "first settlement timestamp must stick")
}

func TestMarkFailed_StatePreconditionAndReason(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	created := seedTransaction(t, db, enums.TransactionStateCreated, now)
	rows, err := repo.MarkFailed(ctx, created.ID, now, strPtr("beneficiary unreachable"))
	require.NoError(t, err)
	assert.Zero(t, rows, "CREATED never transitions straight to FAILED")

	paid := seedTransaction(t, db, enums.TransactionStatePaid, now)
	rows, err = repo.MarkFailed(ctx, paid.ID, now, strPtr("payout reversed"))
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	var got models.Transaction
	require.NoError(t, db.Where("id = ?", paid.ID).First(&got).Error)
	assert.Equal(t, enums.TransactionStateFailed, got.State)
	require.NotNil(t, got.FailureReason)
	assert.Equal(t, "payout reversed", *got.FailureReason)

	rows, err = repo.MarkFailed(ctx, paid.ID, now, nil)
	require.NoError(t, err)
	assert.Zero(t, rows, "FAILED is terminal")
}

func TestFindInWindow_InclusiveBounds(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	before := seedTransaction(t, db, enums.TransactionStateConfirmed, from.Add(-time.Second))
	atFrom := seedTransaction(t, db, enums.TransactionStateConfirmed, from)
	middle := seedTransaction(t, db, enums.TransactionStateConfirmed, from.AddDate(0, 0, 1))
	atTo := seedTransaction(t, db, enums.TransactionStateConfirmed, to)
	after := seedTransaction(t, db, enums.TransactionStateConfirmed, to.Add(time.Second))

	window, err := repo.FindInWindow(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, window, 3)

	ids := make([]uuid.UUID, 0, len(window))
	for _, txn := range window {
		ids = append(ids, txn.ID)
	}
	assert.Equal(t, []uuid.UUID{atFrom.ID, middle.ID, atTo.ID}, ids, "ordered by created_at, bounds inclusive")
	assert.NotContains(t, ids, before.ID)
	assert.NotContains(t, ids, after.ID)
}

func TestFindByReferenceCode_NotFound(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByReferenceCode(context.Background(), "REM-MISSING")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
