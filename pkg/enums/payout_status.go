package enums

import "fmt"

// PayoutStatus is the status field the payout partner reports on its webhook.
type PayoutStatus string

const (
	PayoutStatusPaid    PayoutStatus = "PAID"
	PayoutStatusFailed  PayoutStatus = "FAILED"
	PayoutStatusCashout PayoutStatus = "CASHOUT"
	PayoutStatusSettled PayoutStatus = "SETTLED"
)

var validPayoutStatuses = []PayoutStatus{
	PayoutStatusPaid,
	PayoutStatusFailed,
	PayoutStatusCashout,
	PayoutStatusSettled,
}

// String implements fmt.Stringer.
func (s PayoutStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a recognized partner status.
func (s PayoutStatus) IsValid() bool {
	for _, candidate := range validPayoutStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePayoutStatus converts raw input into a PayoutStatus.
func ParsePayoutStatus(value string) (PayoutStatus, error) {
	for _, candidate := range validPayoutStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout status %q", value)
}
