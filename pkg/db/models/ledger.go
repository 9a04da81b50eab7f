package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerAccount is a named account ledger entries move money between.
type LedgerAccount struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code      string    `gorm:"column:code;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// LedgerEntry is an immutable double-entry posting. Only created on final
// settlement of a transaction.
type LedgerEntry struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DebitAccountID  uuid.UUID       `gorm:"column:debit_account_id;type:uuid;not null"`
	CreditAccountID uuid.UUID       `gorm:"column:credit_account_id;type:uuid;not null"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency        string          `gorm:"column:currency;not null"`
	Memo            string          `gorm:"column:memo;not null"`
	TransactionID   uuid.UUID       `gorm:"column:transaction_id;type:uuid;not null;index"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}
