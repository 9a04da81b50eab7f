package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/YuniorRivera/remesas-haiti-backend/pkg/db/models"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/enums"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/errors"
)

// RecordInput describes one audit event to append.
type RecordInput struct {
	TransactionID    *uuid.UUID
	ReconciliationID *uuid.UUID
	EventType        enums.EventType
	ActorType        enums.ActorType
	ActorID          *uuid.UUID
	Meta             map[string]any
}

// Service appends and reads audit events.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Record(ctx context.Context, input RecordInput) (*models.Event, error)
	ListForTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Event, error)
	ListForReconciliation(ctx context.Context, reconciliationID uuid.UUID) ([]models.Event, error)
}

// ServiceParams lists the dependencies of the event service.
type ServiceParams struct {
	Repo Repository
}

type service struct {
	repo Repository
}

func NewService(params ServiceParams) Service {
	if params.Repo == nil {
		panic("events: ServiceParams.Repo is required")
	}
	return &service{repo: params.Repo}
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Record(ctx context.Context, input RecordInput) (*models.Event, error) {
	if !input.EventType.IsValid() {
		return nil, errors.New(errors.CodeValidation, "invalid event type")
	}
	if !input.ActorType.IsValid() {
		return nil, errors.New(errors.CodeValidation, "invalid actor type")
	}
	if input.TransactionID == nil && input.ReconciliationID == nil {
		return nil, errors.New(errors.CodeValidation, "event must reference a transaction or a reconciliation")
	}

	var meta json.RawMessage
	if input.Meta != nil {
		raw, err := json.Marshal(input.Meta)
		if err != nil {
			return nil, errors.Wrap(errors.CodeInternal, err, "marshal event meta")
		}
		meta = raw
	}

	event := &models.Event{
		TransactionID:    input.TransactionID,
		ReconciliationID: input.ReconciliationID,
		EventType:        input.EventType,
		ActorType:        input.ActorType,
		ActorID:          input.ActorID,
		Meta:             meta,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "persist audit event")
	}
	return event, nil
}

func (s *service) ListForTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Event, error) {
	out, err := s.repo.ListByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "list transaction events")
	}
	return out, nil
}

func (s *service) ListForReconciliation(ctx context.Context, reconciliationID uuid.UUID) ([]models.Event, error) {
	out, err := s.repo.ListByReconciliationID(ctx, reconciliationID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "list reconciliation events")
	}
	return out, nil
}
