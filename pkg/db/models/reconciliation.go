package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/YuniorRivera/remesas-haiti-backend/pkg/enums"
)

// Reconciliation is the persisted outcome of matching one external batch
// against the internal transaction ledger.
type Reconciliation struct {
	ID       uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Source   enums.ReconciliationSource `gorm:"column:source;type:reconciliation_source_enum;not null"`
	Status   enums.ReconciliationStatus `gorm:"column:status;type:reconciliation_status_enum;not null;default:'pending'"`
	Variance decimal.Decimal            `gorm:"column:variance;type:numeric(14,2);not null"`

	// Data holds the matched/unmatched/summary payload the results view renders.
	Data json.RawMessage `gorm:"column:data;type:jsonb;not null"`

	ProcessedBy *uuid.UUID `gorm:"column:processed_by;type:uuid"`
	ProcessedAt time.Time  `gorm:"column:processed_at;not null"`
	FileRef     *string    `gorm:"column:file_ref"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
