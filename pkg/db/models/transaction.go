package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/YuniorRivera/remesas-haiti-backend/pkg/enums"
)

// Transaction is a remittance order as the ledger sees it. Amount columns are
// immutable after creation; lifecycle timestamps are each set exactly once.
type Transaction struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReferenceCode string    `gorm:"column:reference_code;not null;uniqueIndex"`

	PrincipalAmount decimal.Decimal      `gorm:"column:principal_amount;type:numeric(14,2);not null"`
	TotalClientPays decimal.Decimal      `gorm:"column:total_client_pays;type:numeric(14,2);not null"`
	PayoutAmount    decimal.NullDecimal  `gorm:"column:payout_amount;type:numeric(14,2)"`
	SourceCurrency  string               `gorm:"column:source_currency;not null;default:'USD'"`
	PayoutCurrency  string               `gorm:"column:payout_currency;not null;default:'HTG'"`

	State enums.TransactionState `gorm:"column:state;type:transaction_state_enum;not null;default:'CREATED'"`

	AgentID *uuid.UUID `gorm:"column:agent_id;type:uuid;index"`

	PayoutOperatorID *string  `gorm:"column:payout_operator_id"`
	PayoutReceiptNum *string  `gorm:"column:payout_receipt_num"`
	PayoutLat        *float64 `gorm:"column:payout_lat"`
	PayoutLon        *float64 `gorm:"column:payout_lon"`
	PayoutAddress    *string  `gorm:"column:payout_address"`
	PayoutCity       *string  `gorm:"column:payout_city"`
	FailureReason    *string  `gorm:"column:failure_reason"`

	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime;index"`
	PaidAt    *time.Time `gorm:"column:paid_at"`
	SettledAt *time.Time `gorm:"column:settled_at"`
	FailedAt  *time.Time `gorm:"column:failed_at"`
}

// ExpectedAmount returns the internal amount an external record should carry
// for the given source: bank settlements reflect what the client paid gross of
// fees, payout partner settlements reflect the principal disbursed upstream.
func (t Transaction) ExpectedAmount(source enums.ReconciliationSource) decimal.Decimal {
	if source == enums.ReconciliationSourceBank {
		return t.TotalClientPays
	}
	return t.PrincipalAmount
}

// SettlementAmount is the figure posted to the ledger on final settlement,
// falling back to the principal when no payout amount was captured.
func (t Transaction) SettlementAmount() decimal.Decimal {
	if t.PayoutAmount.Valid {
		return t.PayoutAmount.Decimal
	}
	return t.PrincipalAmount
}
