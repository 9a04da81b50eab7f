package payouts

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/YuniorRivera/remesas-haiti-backend/internal/agents"
	"github.com/YuniorRivera/remesas-haiti-backend/internal/events"
	"github.com/YuniorRivera/remesas-haiti-backend/internal/ledger"
	"github.com/YuniorRivera/remesas-haiti-backend/internal/transactions"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/config"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/db/models"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/enums"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/errors"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/logger"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service applies payout partner notifications to the transaction ledger.
type Service interface {
	HandleNotification(ctx context.Context, n Notification) (*Result, error)
}

// ServiceParams lists the dependencies of the payout lifecycle service.
type ServiceParams struct {
	TransactionRepo transactions.Repository
	AgentRepo       agents.Repository
	Events          events.Service
	Ledger          ledger.Service
	Tx              txRunner
	Logger          *logger.Logger
	Metrics         *metrics.PayoutMetrics
	Flags           config.FeatureFlagsConfig
}

type service struct {
	txnRepo   transactions.Repository
	agentRepo agents.Repository
	events    events.Service
	ledger    ledger.Service
	tx        txRunner
	log       *logger.Logger
	metrics   *metrics.PayoutMetrics
	flags     config.FeatureFlagsConfig
}

func NewService(params ServiceParams) Service {
	if params.TransactionRepo == nil {
		panic("payouts: ServiceParams.TransactionRepo is required")
	}
	if params.AgentRepo == nil {
		panic("payouts: ServiceParams.AgentRepo is required")
	}
	if params.Events == nil {
		panic("payouts: ServiceParams.Events is required")
	}
	if params.Ledger == nil {
		panic("payouts: ServiceParams.Ledger is required")
	}
	if params.Tx == nil {
		panic("payouts: ServiceParams.Tx is required")
	}
	if params.Logger == nil {
		panic("payouts: ServiceParams.Logger is required")
	}
	return &service{
		txnRepo:   params.TransactionRepo,
		agentRepo: params.AgentRepo,
		events:    params.Events,
		ledger:    params.Ledger,
		tx:        params.Tx,
		log:       params.Logger,
		metrics:   params.Metrics,
		flags:     params.Flags,
	}
}

// HandleNotification validates the notification, applies the state transition
// and its side effects, and appends the audit event. Everything runs in one
// database transaction so the state change, float refund, ledger line, and
// event commit or roll back together.
func (s *service) HandleNotification(ctx context.Context, n Notification) (*Result, error) {
	started := time.Now()

	status, err := enums.ParsePayoutStatus(n.Status)
	if err != nil {
		s.metrics.IncFailure(string(errors.CodeValidation))
		return nil, errors.New(errors.CodeValidation, "status must be one of PAID, FAILED, CASHOUT, SETTLED")
	}
	if n.ReferenceCode == "" {
		s.metrics.IncFailure(string(errors.CodeValidation))
		return nil, errors.New(errors.CodeValidation, "reference_code is required")
	}

	ctx = s.log.WithReferenceCode(ctx, n.ReferenceCode)

	var result *Result
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		res, err := s.apply(ctx, tx, n, status)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		if typed := errors.As(err); typed != nil {
			s.metrics.IncFailure(string(typed.Code()))
		} else {
			s.metrics.IncFailure(string(errors.CodeInternal))
		}
		return nil, err
	}

	s.metrics.ObserveDuration(string(status), time.Since(started))
	if result.Replayed {
		s.metrics.IncReplayed()
		s.log.Info(ctx, "duplicate payout notification absorbed")
	} else {
		s.metrics.IncProcessed(string(status))
		s.log.Info(
			s.log.WithFields(ctx, map[string]any{
				"status":         status,
				"previous_state": result.PreviousState,
				"new_state":      result.NewState,
			}),
			"payout notification applied",
		)
	}
	return result, nil
}

func (s *service) apply(ctx context.Context, tx *gorm.DB, n Notification, status enums.PayoutStatus) (*Result, error) {
	txnRepo := s.txnRepo.WithTx(tx)

	txn, err := txnRepo.FindByReferenceCode(ctx, n.ReferenceCode)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "transaction not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "load transaction")
	}

	previous := txn.State
	newState := previous
	replayed := false
	now := time.Now().UTC()

	switch status {
	case enums.PayoutStatusPaid:
		paidAt := now
		if n.PaidAt != nil {
			paidAt = n.PaidAt.UTC()
		}
		rows, err := txnRepo.MarkPaid(ctx, txn.ID, paidAt, payoutDetails(n))
		if err != nil {
			return nil, errors.Wrap(errors.CodeDependency, err, "mark transaction paid")
		}
		if rows == 0 {
			if previous == enums.TransactionStatePaid {
				replayed = true
				break
			}
			return nil, stateConflict(previous, status)
		}
		newState = enums.TransactionStatePaid

	case enums.PayoutStatusSettled:
		settledAt := now
		if n.SettledAt != nil {
			settledAt = n.SettledAt.UTC()
		}
		rows, err := txnRepo.MarkSettled(ctx, txn.ID, settledAt)
		if err != nil {
			return nil, errors.Wrap(errors.CodeDependency, err, "mark transaction settled")
		}
		if rows == 0 {
			if previous == enums.TransactionStatePaid && txn.SettledAt != nil {
				replayed = true
				break
			}
			return nil, stateConflict(previous, status)
		}
		if err := s.postSettlement(ctx, tx, txn); err != nil {
			return nil, err
		}

	case enums.PayoutStatusFailed:
		rows, err := txnRepo.MarkFailed(ctx, txn.ID, now, n.FailureReason)
		if err != nil {
			return nil, errors.Wrap(errors.CodeDependency, err, "mark transaction failed")
		}
		if rows == 0 {
			if previous == enums.TransactionStateFailed {
				replayed = true
				break
			}
			return nil, stateConflict(previous, status)
		}
		newState = enums.TransactionStateFailed
		if txn.AgentID != nil {
			credited, err := s.agentRepo.WithTx(tx).CreditFloat(ctx, *txn.AgentID, txn.PrincipalAmount)
			if err != nil {
				return nil, errors.Wrap(errors.CodeDependency, err, "refund agent float")
			}
			if credited == 0 {
				return nil, errors.New(errors.CodeDependency, "issuing agent not found for float refund")
			}
		}

	case enums.PayoutStatusCashout:
		// Informational only; the event below is the whole effect.
	}

	result := &Result{
		TransactionID: txn.ID,
		ReferenceCode: txn.ReferenceCode,
		Status:        status,
		PreviousState: previous,
		NewState:      newState,
		ProcessedAt:   now,
		Replayed:      replayed,
	}
	if replayed {
		return result, nil
	}

	eventType, err := enums.EventTypeForPayoutStatus(status)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "map payout status to event type")
	}
	meta := map[string]any{
		"notification":   n,
		"previous_state": previous,
		"new_state":      newState,
	}
	if s.flags.FraudScoring {
		meta["fraud_score"] = fraudScore(txn)
	}
	_, err = s.events.WithTx(tx).Record(ctx, events.RecordInput{
		TransactionID: &txn.ID,
		EventType:     eventType,
		ActorType:     enums.ActorTypeSystem,
		Meta:          meta,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// postSettlement is best-effort with respect to unresolved accounts: the
// settlement timestamp must land even when the ledger is misconfigured.
func (s *service) postSettlement(ctx context.Context, tx *gorm.DB, txn *models.Transaction) error {
	_, err := s.ledger.WithTx(tx).PostSettlement(ctx, ledger.SettlementInput{
		TransactionID: txn.ID,
		ReferenceCode: txn.ReferenceCode,
		Amount:        txn.SettlementAmount(),
		Currency:      txn.PayoutCurrency,
	})
	if err != nil {
		if stderrors.Is(err, ledger.ErrAccountsUnresolved) {
			s.log.Warn(ctx, "ledger accounts unresolved, settlement posting skipped")
			return nil
		}
		return err
	}
	return nil
}

func payoutDetails(n Notification) transactions.PayoutDetails {
	return transactions.PayoutDetails{
		OperatorID: n.PayoutOperatorID,
		ReceiptNum: n.PayoutReceiptNum,
		Lat:        n.PayoutLat,
		Lon:        n.PayoutLon,
		Address:    n.PayoutAddress,
		City:       n.PayoutCity,
	}
}

func stateConflict(state enums.TransactionState, status enums.PayoutStatus) error {
	return errors.New(errors.CodeStateConflict, "transition not allowed").
		WithDetails(map[string]string{
			"current_state": string(state),
			"status":        string(status),
		})
}

var highValueFraudCutoff = decimal.NewFromInt(10000)

// fraudScore is a placeholder heuristic behind the fraud scoring flag. A real
// model integration would replace this wholesale.
func fraudScore(txn *models.Transaction) float64 {
	if txn.PrincipalAmount.GreaterThan(highValueFraudCutoff) {
		return 0.8
	}
	return 0.1
}
