package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/YuniorRivera/remesas-haiti-backend/api/middleware"
	"github.com/YuniorRivera/remesas-haiti-backend/api/responses"
	"github.com/YuniorRivera/remesas-haiti-backend/api/validators"
	"github.com/YuniorRivera/remesas-haiti-backend/internal/reconciliation"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/db/models"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/enums"
	pkgerrors "github.com/YuniorRivera/remesas-haiti-backend/pkg/errors"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/logger"
)

const (
	defaultReconciliationPageSize = 20
	maxReconciliationPageSize     = 100
)

type ReconciliationService interface {
	Reconcile(ctx context.Context, input reconciliation.ReconcileInput) (*reconciliation.Result, error)
	ForceReconcile(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*models.Reconciliation, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Reconciliation, error)
	List(ctx context.Context, limit, offset int) ([]models.Reconciliation, error)
}

type reconcileItemRequest struct {
	ReferenceCode string          `json:"reference_code,omitempty" validate:"omitempty,max=50"`
	TransactionID string          `json:"transaction_id,omitempty" validate:"omitempty,uuid"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
}

type reconcileRequest struct {
	Source  string                 `json:"source" validate:"required,oneof=BANK PAYOUT"`
	Data    []reconcileItemRequest `json:"data" validate:"required,min=1"`
	FileRef *string                `json:"file_ref,omitempty" validate:"omitempty,max=255"`
}

type reconcileSummaryResponse struct {
	Matched   int             `json:"matched"`
	Unmatched int             `json:"unmatched"`
	Variance  decimal.Decimal `json:"variance"`
	Status    string          `json:"status"`
}

type reconcileResponse struct {
	ReconciliationID uuid.UUID                `json:"reconciliation_id"`
	Summary          reconcileSummaryResponse `json:"summary"`
	Details          reconciliation.ResultData `json:"details"`
}

// CreateReconciliation runs the matcher over an uploaded settlement batch.
func CreateReconciliation(svc ReconciliationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		var req reconcileRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		source, err := enums.ParseReconciliationSource(req.Source)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid source"))
			return
		}

		items := make([]reconciliation.ExternalRecord, len(req.Data))
		for i, item := range req.Data {
			items[i] = reconciliation.ExternalRecord{
				ReferenceCode: strings.TrimSpace(item.ReferenceCode),
				TransactionID: strings.TrimSpace(item.TransactionID),
				Amount:        item.Amount,
				Date:          item.Date,
			}
		}

		input := reconciliation.ReconcileInput{
			Source:  source,
			Items:   items,
			FileRef: req.FileRef,
		}
		if actorID, err := uuid.Parse(middleware.UserIDFromContext(r.Context())); err == nil {
			input.ProcessedBy = &actorID
		}

		result, err := svc.Reconcile(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, reconcileResponse{
			ReconciliationID: result.ReconciliationID,
			Summary: reconcileSummaryResponse{
				Matched:   result.Data.Summary.MatchedCount,
				Unmatched: result.Data.Summary.UnmatchedCount,
				Variance:  result.Data.Summary.TotalVariance,
				Status:    string(result.Status),
			},
			Details: result.Data,
		})
	}
}

// ListReconciliations returns recent runs, newest first.
func ListReconciliations(svc ReconciliationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultReconciliationPageSize, 1, maxReconciliationPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.List(r.Context(), limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// GetReconciliation returns one run with its full matched/unmatched payload.
func GetReconciliation(svc ReconciliationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		id, err := parseReconciliationID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rec, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}

// ForceReconciliation flips a pending run to reconciled by operator override.
func ForceReconciliation(svc ReconciliationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		id, err := parseReconciliationID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor identity"))
			return
		}

		rec, err := svc.ForceReconcile(r.Context(), id, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}

func parseReconciliationID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "reconciliationId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "reconciliation id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reconciliation id")
	}
	return id, nil
}
