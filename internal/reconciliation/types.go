package reconciliation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/YuniorRivera/remesas-haiti-backend/pkg/enums"
)

// ExternalRecord is one row of a bank statement or payout partner settlement
// file, already decoded from the upload payload.
type ExternalRecord struct {
	ReferenceCode string          `json:"reference_code,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
}

// ReconcileInput is the full batch handed to the matcher.
type ReconcileInput struct {
	Source      enums.ReconciliationSource
	Items       []ExternalRecord
	FileRef     *string
	ProcessedBy *uuid.UUID
}

// MatchedItem pairs one external record with the internal transaction it
// matched and the amount difference between the two books.
type MatchedItem struct {
	ExternalReference string          `json:"external_reference"`
	InternalReference string          `json:"internal_reference"`
	ExternalAmount    decimal.Decimal `json:"external_amount"`
	InternalAmount    decimal.Decimal `json:"internal_amount"`
	Variance          decimal.Decimal `json:"variance"`
	Date              time.Time       `json:"date"`
	TransactionID     uuid.UUID       `json:"transaction_id"`
}

// UnmatchedOrigin tells which book an unmatched row came from.
type UnmatchedOrigin string

const (
	UnmatchedOriginExternal UnmatchedOrigin = "external"
	UnmatchedOriginInternal UnmatchedOrigin = "internal"
)

// UnmatchedItem is a row present in only one of the two books.
type UnmatchedItem struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Origin    UnmatchedOrigin `json:"origin"`
}

// Summary aggregates one reconciliation run.
type Summary struct {
	TotalItems     int             `json:"total_items"`
	MatchedCount   int             `json:"matched_count"`
	UnmatchedCount int             `json:"unmatched_count"`
	TotalVariance  decimal.Decimal `json:"total_variance"`
}

// ResultData is the structured payload persisted on the reconciliation row
// and rendered by the back-office results view.
type ResultData struct {
	Matched   []MatchedItem   `json:"matched"`
	Unmatched []UnmatchedItem `json:"unmatched"`
	Summary   Summary         `json:"summary"`
}

// Result is what the reconcile operation returns to the controller.
type Result struct {
	ReconciliationID uuid.UUID
	Status           enums.ReconciliationStatus
	Data             ResultData
}
