package reconciliation

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/YuniorRivera/remesas-haiti-backend/internal/events"
	"github.com/YuniorRivera/remesas-haiti-backend/internal/transactions"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/db/models"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/enums"
	pkgerrors "github.com/YuniorRivera/remesas-haiti-backend/pkg/errors"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/logger"
)

func setupReconciliationTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE transactions (
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
);`,
		`CREATE TABLE reconciliations (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  variance NUMERIC NOT NULL,
  data TEXT NOT NULL,
  processed_by TEXT,
  processed_at DATETIME NOT NULL,
  file_ref TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE events (
  id TEXT PRIMARY KEY,
  transaction_id TEXT,
  reconciliation_id TEXT,
  event_type TEXT NOT NULL,
  actor_type TEXT NOT NULL,
  actor_id TEXT,
  meta TEXT,
  created_at DATETIME
);`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type reconciliationTxRunner struct {
	db *gorm.DB
}

func (r reconciliationTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

type reconciliationFixture struct {
	db  *gorm.DB
	svc Service
}

func newReconciliationFixture(t *testing.T) *reconciliationFixture {
	t.Helper()
	db := setupReconciliationTestDB(t)
	svc := NewService(ServiceParams{
		Repo:            NewRepository(db),
		TransactionRepo: transactions.NewRepository(db),
		Events:          events.NewService(events.ServiceParams{Repo: events.NewRepository(db)}),
		Tx:              reconciliationTxRunner{db: db},
		Logger:          logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	return &reconciliationFixture{db: db, svc: svc}
}

func (f *reconciliationFixture) createTransaction(t *testing.T, referenceCode string, totalClientPays, principal int64, createdAt time.Time) *models.Transaction {
	t.Helper()
	txn := &models.Transaction{
		ID:              uuid.New(),
		ReferenceCode:   referenceCode,
		PrincipalAmount: decimal.NewFromInt(principal),
		TotalClientPays: decimal.NewFromInt(totalClientPays),
		State:           enums.TransactionStateConfirmed,
		CreatedAt:       createdAt,
	}
	require.NoError(t, f.db.Create(txn).Error)
	return txn
}

var batchDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestReconcile_ExactMatchIsReconciled(t *testing.T) {
	f := newReconciliationFixture(t)
	f.createTransaction(t, "REM-1", 1000, 950, batchDate)

	result, err := f.svc.Reconcile(context.Background(), ReconcileInput{
		Source: enums.ReconciliationSourceBank,
		Items: []ExternalRecord{
			{ReferenceCode: "REM-1", Amount: decimal.NewFromInt(1000), Date: batchDate},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, enums.ReconciliationStatusReconciled, result.Status)
	assert.Equal(t, 1, result.Data.Summary.MatchedCount)
	assert.Equal(t, 0, result.Data.Summary.UnmatchedCount)
	assert.True(t, result.Data.Summary.TotalVariance.IsZero())

	var rec models.Reconciliation
	require.NoError(t, f.db.Where("id = ?", result.ReconciliationID).First(&rec).Error)
	assert.Equal(t, enums.ReconciliationStatusReconciled, rec.Status)

	var eventCount int64
	require.NoError(t, f.db.Model(&models.Event{}).
		Where("reconciliation_id = ?", result.ReconciliationID).Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)
}

func TestReconcile_AmountDriftIsPending(t *testing.T) {
	f := newReconciliationFixture(t)
	f.createTransaction(t, "REM-1", 950, 900, batchDate)

	result, err := f.svc.Reconcile(context.Background(), ReconcileInput{
		Source: enums.ReconciliationSourceBank,
		Items: []ExternalRecord{
			{ReferenceCode: "REM-1", Amount: decimal.NewFromInt(1000), Date: batchDate},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, enums.ReconciliationStatusPending, result.Status)
	require.Len(t, result.Data.Matched, 1)
	assert.True(t, result.Data.Matched[0].Variance.Equal(decimal.NewFromInt(50)))
	assert.True(t, result.Data.Summary.TotalVariance.Equal(decimal.NewFromInt(50)))
}

func TestReconcile_PayoutSourceUsesPrincipal(t *testing.T) {
	f := newReconciliationFixture(t)
	f.createTransaction(t, "REM-1", 1000, 950, batchDate)

	result, err := f.svc.Reconcile(context.Background(), ReconcileInput{
		Source: enums.ReconciliationSourcePayout,
		Items: []ExternalRecord{
			{ReferenceCode: "REM-1", Amount: decimal.NewFromInt(950), Date: batchDate},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ReconciliationStatusReconciled, result.Status)
}

func TestReconcile_ItemWithoutReferenceRejected(t *testing.T) {
	f := newReconciliationFixture(t)

	_, err := f.svc.Reconcile(context.Background(), ReconcileInput{
		Source: enums.ReconciliationSourceBank,
		Items: []ExternalRecord{
			{Amount: decimal.NewFromInt(1000), Date: batchDate},
		},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	var recCount int64
	require.NoError(t, f.db.Model(&models.Reconciliation{}).Count(&recCount).Error)
	assert.Zero(t, recCount, "rejected batch must not be persisted")
}

func TestReconcile_EmptyBatchRejected(t *testing.T) {
	f := newReconciliationFixture(t)

	_, err := f.svc.Reconcile(context.Background(), ReconcileInput{
		Source: enums.ReconciliationSourceBank,
		Items:  []ExternalRecord{},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestReconcile_UnmatchedInternalSubtractsAmount(t *testing.T) {
	f := newReconciliationFixture(t)
	f.createTransaction(t, "REM-1", 1000, 950, batchDate)
	f.createTransaction(t, "REM-2", 300, 280, batchDate)

	result, err := f.svc.Reconcile(context.Background(), ReconcileInput{
		Source: enums.ReconciliationSourceBank,
		Items: []ExternalRecord{
			{ReferenceCode: "REM-1", Amount: decimal.NewFromInt(1000), Date: batchDate},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, enums.ReconciliationStatusPending, result.Status)
	assert.Equal(t, 1, result.Data.Summary.MatchedCount)
	assert.Equal(t, 1, result.Data.Summary.UnmatchedCount)
	assert.True(t, result.Data.Summary.TotalVariance.Equal(decimal.NewFromInt(-300)),
		"internal shortfall should subtract total_client_pays, got %s", result.Data.Summary.TotalVariance)

	require.Len(t, result.Data.Unmatched, 1)
	assert.Equal(t, UnmatchedOriginInternal, result.Data.Unmatched[0].Origin)
	assert.Equal(t, "REM-2", result.Data.Unmatched[0].Reference)
}

func TestReconcile_UnmatchedExternalDoesNotMoveVariance(t *testing.T) {
	f := newReconciliationFixture(t)
	f.createTransaction(t, "REM-1", 1000, 950, batchDate)

	result, err := f.svc.Reconcile(context.Background(), ReconcileInput{
		Source: enums.ReconciliationSourceBank,
		Items: []ExternalRecord{
			{ReferenceCode: "REM-1", Amount: decimal.NewFromInt(1000), Date: batchDate},
			{ReferenceCode: "UNKNOWN-9", Amount: decimal.NewFromInt(777), Date: batchDate},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, enums.ReconciliationStatusReconciled, result.Status)
	assert.True(t, result.Data.Summary.TotalVariance.IsZero())
	require.Len(t, result.Data.Unmatched, 1)
	assert.Equal(t, UnmatchedOriginExternal, result.Data.Unmatched[0].Origin)
}

func TestReconcile_VarianceBoundary(t *testing.T) {
	cases := []struct {
		name     string
		external string
		want     enums.ReconciliationStatus
	}{
		// An unmatched internal amount drives the total to exactly the
		// threshold or just under it.
		{name: "exactly one cent is pending", external: "0.01", want: enums.ReconciliationStatusPending},
		{name: "just under one cent is reconciled", external: "0.0099", want: enums.ReconciliationStatusReconciled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newReconciliationFixture(t)
			txn := &models.Transaction{
				ID:              uuid.New(),
				ReferenceCode:   "REM-EDGE",
				PrincipalAmount: decimal.RequireFromString(tc.external),
				TotalClientPays: decimal.RequireFromString(tc.external),
				State:           enums.TransactionStateConfirmed,
				CreatedAt:       batchDate,
			}
			require.NoError(t, f.db.Create(txn).Error)

			// The batch item misses the window transaction entirely, leaving
			// the internal amount as the whole variance.
			result, err := f.svc.Reconcile(context.Background(), ReconcileInput{
				Source: enums.ReconciliationSourceBank,
				Items: []ExternalRecord{
					{ReferenceCode: "OTHER", Amount: decimal.NewFromInt(5), Date: batchDate},
				},
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.Status)
		})
	}
}

func TestReconcile_SubCentDriftNotAccumulated(t *testing.T) {
	f := newReconciliationFixture(t)
	f.createTransaction(t, "REM-1", 1000, 950, batchDate)

	result, err := f.svc.Reconcile(context.Background(), ReconcileInput{
		Source: enums.ReconciliationSourceBank,
		Items: []ExternalRecord{
			{ReferenceCode: "REM-1", Amount: decimal.RequireFromString("1000.005"), Date: batchDate},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Data.Matched, 1)
	assert.True(t, result.Data.Matched[0].Variance.Equal(decimal.RequireFromString("0.005")),
		"per-item variance is recorded regardless of magnitude")
	assert.True(t, result.Data.Summary.TotalVariance.IsZero(),
		"sub-cent drift must not accumulate")
	assert.Equal(t, enums.ReconciliationStatusReconciled, result.Status)
}

func TestReconcile_SummaryInvariants(t *testing.T) {
	f := newReconciliationFixture(t)
	f.createTransaction(t, "REM-1", 1000, 950, batchDate)
	f.createTransaction(t, "REM-2", 200, 190, batchDate.Add(time.Hour))
	f.createTransaction(t, "REM-3", 400, 380, batchDate.Add(2*time.Hour))

	items := []ExternalRecord{
		{ReferenceCode: "REM-1", Amount: decimal.NewFromInt(1040), Date: batchDate},
		{ReferenceCode: "REM-2", Amount: decimal.NewFromInt(200), Date: batchDate.Add(time.Hour)},
		{ReferenceCode: "GHOST", Amount: decimal.NewFromInt(50), Date: batchDate.Add(2 * time.Hour)},
	}
	result, err := f.svc.Reconcile(context.Background(), ReconcileInput{
		Source: enums.ReconciliationSourceBank,
		Items:  items,
	})
	require.NoError(t, err)

	data := result.Data
	assert.GreaterOrEqual(t, len(data.Matched)+len(data.Unmatched), len(items))
	assert.Equal(t, data.Summary.TotalItems, data.Summary.MatchedCount+data.Summary.UnmatchedCount)

	// Recompute the persisted variance from the detail rows.
	recomputed := decimal.Zero
	for _, m := range data.Matched {
		if m.Variance.Abs().GreaterThan(decimal.RequireFromString("0.01")) {
			recomputed = recomputed.Add(m.Variance)
		}
	}
	for _, u := range data.Unmatched {
		if u.Origin == UnmatchedOriginInternal {
			recomputed = recomputed.Sub(u.Amount)
		}
	}
	var rec models.Reconciliation
	require.NoError(t, f.db.Where("id = ?", result.ReconciliationID).First(&rec).Error)
	assert.True(t, rec.Variance.Equal(recomputed),
		"persisted %s, recomputed %s", rec.Variance, recomputed)

	// The persisted data payload round-trips to the same structure.
	var persisted ResultData
	require.NoError(t, json.Unmarshal(rec.Data, &persisted))
	assert.Equal(t, data.Summary.MatchedCount, persisted.Summary.MatchedCount)
	assert.Equal(t, data.Summary.UnmatchedCount, persisted.Summary.UnmatchedCount)
}

func TestReconcile_WindowExcludesOutsideTransactions(t *testing.T) {
	f := newReconciliationFixture(t)
	f.createTransaction(t, "REM-IN", 1000, 950, batchDate)
	f.createTransaction(t, "REM-OUT", 500, 480, batchDate.AddDate(0, 1, 0))

	result, err := f.svc.Reconcile(context.Background(), ReconcileInput{
		Source: enums.ReconciliationSourceBank,
		Items: []ExternalRecord{
			{ReferenceCode: "REM-IN", Amount: decimal.NewFromInt(1000), Date: batchDate},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Data.Summary.MatchedCount)
	assert.Equal(t, 0, result.Data.Summary.UnmatchedCount,
		"transactions outside the batch window must not surface as shortfall")
}

func TestForceReconcile_OverridesPending(t *testing.T) {
	f := newReconciliationFixture(t)
	f.createTransaction(t, "REM-1", 950, 900, batchDate)

	result, err := f.svc.Reconcile(context.Background(), ReconcileInput{
		Source: enums.ReconciliationSourceBank,
		Items: []ExternalRecord{
			{ReferenceCode: "REM-1", Amount: decimal.NewFromInt(1000), Date: batchDate},
		},
	})
	require.NoError(t, err)
	require.Equal(t, enums.ReconciliationStatusPending, result.Status)

	actor := uuid.New()
	rec, err := f.svc.ForceReconcile(context.Background(), result.ReconciliationID, actor)
	require.NoError(t, err)
	assert.Equal(t, enums.ReconciliationStatusReconciled, rec.Status)
	assert.True(t, rec.Variance.Equal(decimal.NewFromInt(50)), "override must not rewrite the variance")

	var eventCount int64
	require.NoError(t, f.db.Model(&models.Event{}).
		Where("reconciliation_id = ? AND event_type = ?", result.ReconciliationID, enums.EventTypeReconciliationForced).
		Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)

	// Forcing an already reconciled run is a state conflict.
	_, err = f.svc.ForceReconcile(context.Background(), result.ReconciliationID, actor)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestForceReconcile_NotFound(t *testing.T) {
	f := newReconciliationFixture(t)

	_, err := f.svc.ForceReconcile(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestListAndGet(t *testing.T) {
	f := newReconciliationFixture(t)
	f.createTransaction(t, "REM-1", 1000, 950, batchDate)

	result, err := f.svc.Reconcile(context.Background(), ReconcileInput{
		Source: enums.ReconciliationSourceBank,
		Items: []ExternalRecord{
			{ReferenceCode: "REM-1", Amount: decimal.NewFromInt(1000), Date: batchDate},
		},
	})
	require.NoError(t, err)

	list, err := f.svc.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, result.ReconciliationID, list[0].ID)

	got, err := f.svc.Get(context.Background(), result.ReconciliationID)
	require.NoError(t, err)
	assert.Equal(t, result.ReconciliationID, got.ID)

	_, err = f.svc.Get(context.Background(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
