package enums

import "fmt"

// TransactionState maps to the transaction_state_enum enum in Postgres.
type TransactionState string

const (
	TransactionStateCreated   TransactionState = "CREATED"
	TransactionStateConfirmed TransactionState = "CONFIRMED"
	TransactionStatePaid      TransactionState = "PAID"
	TransactionStateFailed    TransactionState = "FAILED"
)

var validTransactionStates = []TransactionState{
	TransactionStateCreated,
	TransactionStateConfirmed,
	TransactionStatePaid,
	TransactionStateFailed,
}

// String implements fmt.Stringer.
func (s TransactionState) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical state enum.
func (s TransactionState) IsValid() bool {
	for _, candidate := range validTransactionStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTransactionState converts raw input into a TransactionState.
func ParseTransactionState(value string) (TransactionState, error) {
	for _, candidate := range validTransactionStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction state %q", value)
}
