package payouts

import (
	"time"

	"github.com/google/uuid"

	"github.com/YuniorRivera/remesas-haiti-backend/pkg/enums"
)

// Notification is the payout partner's webhook payload.
type Notification struct {
	ReferenceCode string `json:"reference_code" validate:"required,min=1,max=50"`
	Status        string `json:"status" validate:"required,oneof=PAID FAILED CASHOUT SETTLED"`

	TransactionID    *string    `json:"transaction_id,omitempty" validate:"omitempty,uuid"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	SettledAt        *time.Time `json:"settled_at,omitempty"`
	FailureReason    *string    `json:"failure_reason,omitempty" validate:"omitempty,max=500"`
	PayoutOperatorID *string    `json:"payout_operator_id,omitempty" validate:"omitempty,max=100"`
	PayoutReceiptNum *string    `json:"payout_receipt_num,omitempty" validate:"omitempty,max=100"`
	PayoutLat        *float64   `json:"payout_lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	PayoutLon        *float64   `json:"payout_lon,omitempty" validate:"omitempty,gte=-180,lte=180"`
	PayoutAddress    *string    `json:"payout_address,omitempty" validate:"omitempty,max=255"`
	PayoutCity       *string    `json:"payout_city,omitempty" validate:"omitempty,max=100"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Result is what the lifecycle handler reports back to the partner.
type Result struct {
	TransactionID uuid.UUID              `json:"transaction_id"`
	ReferenceCode string                 `json:"reference_code"`
	Status        enums.PayoutStatus     `json:"status"`
	PreviousState enums.TransactionState `json:"previous_state"`
	NewState      enums.TransactionState `json:"new_state"`
	ProcessedAt   time.Time              `json:"processed_at"`

	// Replayed marks a duplicate delivery that was absorbed without side effects.
	Replayed bool `json:"replayed"`
}
