package reconciliation

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/YuniorRivera/remesas-haiti-backend/internal/events"
	"github.com/YuniorRivera/remesas-haiti-backend/internal/transactions"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/db/models"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/enums"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/errors"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/logger"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/metrics"
)

// varianceThreshold is the cent-rounding tolerance: per-item variances at or
// below it are treated as reconciled, and a run whose absolute total stays
// strictly below it is reconciled by default.
var varianceThreshold = decimal.RequireFromString("0.01")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service matches external settlement batches against the internal ledger.
type Service interface {
	Reconcile(ctx context.Context, input ReconcileInput) (*Result, error)
	ForceReconcile(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*models.Reconciliation, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Reconciliation, error)
	List(ctx context.Context, limit, offset int) ([]models.Reconciliation, error)
}

// ServiceParams lists the dependencies of the reconciliation service.
type ServiceParams struct {
	Repo            Repository
	TransactionRepo transactions.Repository
	Events          events.Service
	Tx              txRunner
	Logger          *logger.Logger
	Metrics         *metrics.ReconciliationMetrics
}

type service struct {
	repo    Repository
	txnRepo transactions.Repository
	events  events.Service
	tx      txRunner
	log     *logger.Logger
	metrics *metrics.ReconciliationMetrics
}

func NewService(params ServiceParams) Service {
	if params.Repo == nil {
		panic("reconciliation: ServiceParams.Repo is required")
	}
	if params.TransactionRepo == nil {
		panic("reconciliation: ServiceParams.TransactionRepo is required")
	}
	if params.Events == nil {
		panic("reconciliation: ServiceParams.Events is required")
	}
	if params.Tx == nil {
		panic("reconciliation: ServiceParams.Tx is required")
	}
	if params.Logger == nil {
		panic("reconciliation: ServiceParams.Logger is required")
	}
	return &service{
		repo:    params.Repo,
		txnRepo: params.TransactionRepo,
		events:  params.Events,
		tx:      params.Tx,
		log:     params.Logger,
		metrics: params.Metrics,
	}
}

// Reconcile runs the matcher over one batch and persists the outcome. The
// window fetch and the final write are not transactionally linked to each
// other: a transaction created between them is simply invisible to this run
// and will surface in the next batch.
func (s *service) Reconcile(ctx context.Context, input ReconcileInput) (*Result, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	from, to := dateWindow(input.Items)

	window, err := s.txnRepo.FindInWindow(ctx, from, to)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "fetch transactions for window")
	}

	data := match(input.Source, input.Items, window)

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "marshal reconciliation data")
	}

	status := enums.ReconciliationStatusPending
	if data.Summary.TotalVariance.Abs().LessThan(varianceThreshold) {
		status = enums.ReconciliationStatusReconciled
	}

	rec := &models.Reconciliation{
		Source:      input.Source,
		Status:      status,
		Variance:    data.Summary.TotalVariance,
		Data:        payload,
		ProcessedBy: input.ProcessedBy,
		ProcessedAt: time.Now().UTC(),
		FileRef:     input.FileRef,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, rec); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "persist reconciliation")
		}
		_, err := s.events.WithTx(tx).Record(ctx, events.RecordInput{
			ReconciliationID: &rec.ID,
			EventType:        enums.EventTypeReconciliationProcessed,
			ActorType:        actorTypeFor(input.ProcessedBy),
			ActorID:          input.ProcessedBy,
			Meta: map[string]any{
				"source":          input.Source,
				"matched_count":   data.Summary.MatchedCount,
				"unmatched_count": data.Summary.UnmatchedCount,
				"total_variance":  data.Summary.TotalVariance,
				"file_ref":        input.FileRef,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncProcessed(string(input.Source), string(status))
	s.metrics.AddItems("matched", data.Summary.MatchedCount)
	s.metrics.AddItems("unmatched", data.Summary.UnmatchedCount)

	s.log.Info(
		s.log.WithFields(ctx, map[string]any{
			"reconciliation_id": rec.ID,
			"source":            input.Source,
			"status":            status,
			"matched":           data.Summary.MatchedCount,
			"unmatched":         data.Summary.UnmatchedCount,
			"variance":          data.Summary.TotalVariance,
		}),
		"reconciliation processed",
	)

	return &Result{ReconciliationID: rec.ID, Status: status, Data: data}, nil
}

// ForceReconcile flips a run to reconciled by operator fiat. The variance is
// left as computed; the override is recorded, not re-validated.
func (s *service) ForceReconcile(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*models.Reconciliation, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stdIsNotFound(err) {
			return nil, errors.New(errors.CodeNotFound, "reconciliation not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "load reconciliation")
	}
	if rec.Status == enums.ReconciliationStatusReconciled {
		return nil, errors.New(errors.CodeStateConflict, "reconciliation is already reconciled")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.WithTx(tx).UpdateStatus(ctx, id, enums.ReconciliationStatusReconciled)
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "update reconciliation status")
		}
		if rows == 0 {
			return errors.New(errors.CodeNotFound, "reconciliation not found")
		}
		_, err = s.events.WithTx(tx).Record(ctx, events.RecordInput{
			ReconciliationID: &id,
			EventType:        enums.EventTypeReconciliationForced,
			ActorType:        enums.ActorTypeUser,
			ActorID:          &actorID,
			Meta: map[string]any{
				"previous_status": rec.Status,
				"variance":        rec.Variance,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	rec.Status = enums.ReconciliationStatusReconciled
	return rec, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Reconciliation, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stdIsNotFound(err) {
			return nil, errors.New(errors.CodeNotFound, "reconciliation not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "load reconciliation")
	}
	return rec, nil
}

func (s *service) List(ctx context.Context, limit, offset int) ([]models.Reconciliation, error) {
	out, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "list reconciliations")
	}
	return out, nil
}

// validateInput rejects the whole batch on the first failing field per item;
// nothing is processed partially.
func validateInput(input ReconcileInput) error {
	if !input.Source.IsValid() {
		return errors.New(errors.CodeValidation, "source must be BANK or PAYOUT")
	}
	if len(input.Items) == 0 {
		return errors.New(errors.CodeValidation, "data must contain at least one item")
	}

	details := map[string]string{}
	for i, item := range input.Items {
		switch {
		case item.ReferenceCode == "" && item.TransactionID == "":
			details[fmt.Sprintf("data[%d]", i)] = "reference_code or transaction_id is required"
		case item.Amount.Sign() <= 0:
			details[fmt.Sprintf("data[%d].amount", i)] = "amount must be positive"
		case item.Date.IsZero():
			details[fmt.Sprintf("data[%d].date", i)] = "date is required"
		}
	}
	if len(details) > 0 {
		return errors.New(errors.CodeValidation, "invalid reconciliation items").WithDetails(details)
	}
	return nil
}

func dateWindow(items []ExternalRecord) (time.Time, time.Time) {
	from, to := items[0].Date, items[0].Date
	for _, item := range items[1:] {
		if item.Date.Before(from) {
			from = item.Date
		}
		if item.Date.After(to) {
			to = item.Date
		}
	}
	return from, to
}

// match pairs external items with window transactions by exact reference code
// and totals the drift between the two books.
func match(source enums.ReconciliationSource, items []ExternalRecord, window []models.Transaction) ResultData {
	byReference := make(map[string]*models.Transaction, len(window))
	for i := range window {
		byReference[window[i].ReferenceCode] = &window[i]
	}

	claimed := make(map[string]bool, len(items))
	matched := make([]MatchedItem, 0, len(items))
	unmatched := make([]UnmatchedItem, 0)
	totalVariance := decimal.Zero

	for _, item := range items {
		txn, ok := byReference[item.ReferenceCode]
		if item.ReferenceCode == "" || !ok || claimed[item.ReferenceCode] {
			unmatched = append(unmatched, UnmatchedItem{
				Reference: externalReference(item),
				Amount:    item.Amount,
				Date:      item.Date,
				Origin:    UnmatchedOriginExternal,
			})
			continue
		}
		claimed[item.ReferenceCode] = true

		expected := txn.ExpectedAmount(source)
		variance := item.Amount.Sub(expected)
		matched = append(matched, MatchedItem{
			ExternalReference: item.ReferenceCode,
			InternalReference: txn.ReferenceCode,
			ExternalAmount:    item.Amount,
			InternalAmount:    expected,
			Variance:          variance,
			Date:              item.Date,
			TransactionID:     txn.ID,
		})
		if variance.Abs().GreaterThan(varianceThreshold) {
			totalVariance = totalVariance.Add(variance)
		}
	}

	// Window transactions nobody claimed count as a shortfall on our side.
	for i := range window {
		txn := &window[i]
		if claimed[txn.ReferenceCode] {
			continue
		}
		expected := txn.ExpectedAmount(source)
		unmatched = append(unmatched, UnmatchedItem{
			Reference: txn.ReferenceCode,
			Amount:    expected,
			Date:      txn.CreatedAt,
			Origin:    UnmatchedOriginInternal,
		})
		totalVariance = totalVariance.Sub(expected)
	}

	return ResultData{
		Matched:   matched,
		Unmatched: unmatched,
		Summary: Summary{
			TotalItems:     len(matched) + len(unmatched),
			MatchedCount:   len(matched),
			UnmatchedCount: len(unmatched),
			TotalVariance:  totalVariance,
		},
	}
}

func externalReference(item ExternalRecord) string {
	if item.ReferenceCode != "" {
		return item.ReferenceCode
	}
	return item.TransactionID
}

func actorTypeFor(actorID *uuid.UUID) enums.ActorType {
	if actorID != nil {
		return enums.ActorTypeUser
	}
	return enums.ActorTypeSystem
}

func stdIsNotFound(err error) bool {
	return stderrors.Is(err, gorm.ErrRecordNotFound)
}
