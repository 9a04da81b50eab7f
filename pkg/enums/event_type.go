package enums

import "fmt"

// EventType labels entries in the append-only audit log.
type EventType string

const (
	EventTypePayoutPaid              EventType = "PAYOUT_PAID"
	EventTypePayoutSettled           EventType = "PAYOUT_SETTLED"
	EventTypePayoutFailed            EventType = "PAYOUT_FAILED"
	EventTypePayoutCashout           EventType = "PAYOUT_CASHOUT"
	EventTypeReconciliationProcessed EventType = "RECONCILIATION_PROCESSED"
	EventTypeReconciliationForced    EventType = "RECONCILIATION_FORCED"
)

var validEventTypes = []EventType{
	EventTypePayoutPaid,
	EventTypePayoutSettled,
	EventTypePayoutFailed,
	EventTypePayoutCashout,
	EventTypeReconciliationProcessed,
	EventTypeReconciliationForced,
}

// IsValid reports whether the value is a known event type.
func (t EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// EventTypeForPayoutStatus maps a partner status onto the audit event it produces.
func EventTypeForPayoutStatus(status PayoutStatus) (EventType, error) {
	switch status {
	case PayoutStatusPaid:
		return EventTypePayoutPaid, nil
	case PayoutStatusSettled:
		return EventTypePayoutSettled, nil
	case PayoutStatusFailed:
		return EventTypePayoutFailed, nil
	case PayoutStatusCashout:
		return EventTypePayoutCashout, nil
	}
	return "", fmt.Errorf("no event type for payout status %q", status)
}

// ActorType identifies who triggered an audit event.
type ActorType string

const (
	ActorTypeSystem ActorType = "SYSTEM"
	ActorTypeUser   ActorType = "USER"
)

var validActorTypes = []ActorType{ActorTypeSystem, ActorTypeUser}

// IsValid reports whether the value is a known actor type.
func (t ActorType) IsValid() bool {
	for _, candidate := range validActorTypes {
		if candidate == t {
			return true
		}
	}
	return false
}
