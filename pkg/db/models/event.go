package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/YuniorRivera/remesas-haiti-backend/pkg/enums"
)

// Event is an append-only audit record. Rows are never updated or deleted.
type Event struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionID    *uuid.UUID      `gorm:"column:transaction_id;type:uuid;index"`
	ReconciliationID *uuid.UUID      `gorm:"column:reconciliation_id;type:uuid;index"`
	EventType        enums.EventType `gorm:"column:event_type;type:event_type_enum;not null"`
	ActorType        enums.ActorType `gorm:"column:actor_type;type:actor_type_enum;not null"`
	ActorID          *uuid.UUID      `gorm:"column:actor_id;type:uuid"`
	Meta             json.RawMessage `gorm:"column:meta;type:jsonb"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}
