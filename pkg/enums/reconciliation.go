package enums

import "fmt"

// ReconciliationSource identifies which external book a batch came from.
type ReconciliationSource string

const (
	ReconciliationSourceBank   ReconciliationSource = "BANK"
	ReconciliationSourcePayout ReconciliationSource = "PAYOUT"
)

var validReconciliationSources = []ReconciliationSource{
	ReconciliationSourceBank,
	ReconciliationSourcePayout,
}

// IsValid reports whether the value is a known source.
func (s ReconciliationSource) IsValid() bool {
	for _, candidate := range validReconciliationSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseReconciliationSource converts raw input into a ReconciliationSource.
func ParseReconciliationSource(value string) (ReconciliationSource, error) {
	for _, candidate := range validReconciliationSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reconciliation source %q", value)
}

// ReconciliationStatus maps to the reconciliation_status_enum enum in Postgres.
type ReconciliationStatus string

const (
	ReconciliationStatusPending    ReconciliationStatus = "pending"
	ReconciliationStatusReconciled ReconciliationStatus = "reconciled"
)

var validReconciliationStatuses = []ReconciliationStatus{
	ReconciliationStatusPending,
	ReconciliationStatusReconciled,
}

// IsValid reports whether the value is a known status.
func (s ReconciliationStatus) IsValid() bool {
	for _, candidate := range validReconciliationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
