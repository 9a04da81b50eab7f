package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/YuniorRivera/remesas-haiti-backend/api/responses"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/db/models"
	pkgerrors "github.com/YuniorRivera/remesas-haiti-backend/pkg/errors"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/logger"
)

type transactionRepository interface {
	FindByReferenceCode(ctx context.Context, referenceCode string) (*models.Transaction, error)
}

type eventLister interface {
	ListForTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Event, error)
}

type transactionDetail struct {
	Transaction *models.Transaction `json:"transaction"`
	Events      []models.Event      `json:"events"`
}

// AdminTransactionByReference returns one transaction with its audit trail,
// for back-office investigation of a payout or reconciliation mismatch.
func AdminTransactionByReference(repo transactionRepository, events eventLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil || events == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction repository unavailable"))
			return
		}

		referenceCode := strings.TrimSpace(chi.URLParam(r, "referenceCode"))
		if referenceCode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reference code is required"))
			return
		}

		txn, err := repo.FindByReferenceCode(r.Context(), referenceCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch transaction"))
			return
		}

		trail, err := events.ListForTransaction(r.Context(), txn.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, transactionDetail{Transaction: txn, Events: trail})
	}
}
