package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/YuniorRivera/remesas-haiti-backend/pkg/config"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/db/models"
	"github.com/YuniorRivera/remesas-haiti-backend/pkg/errors"
)

// Accounts holds the account IDs settlement postings move money between.
// They are resolved once at boot; a ledger without the configured accounts
// runs with postings disabled rather than failing every webhook.
type Accounts struct {
	PlatformLiability uuid.UUID
	PartnerPayable    uuid.UUID
}

// ResolveAccounts looks up the configured account codes and returns their IDs.
func ResolveAccounts(ctx context.Context, repo Repository, cfg config.LedgerConfig) (*Accounts, error) {
	platform, err := repo.FindAccountByCode(ctx, cfg.PlatformLiabilityAccount)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err,
			fmt.Sprintf("resolve ledger account %q", cfg.PlatformLiabilityAccount))
	}
	partner, err := repo.FindAccountByCode(ctx, cfg.PartnerPayableAccount)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err,
			fmt.Sprintf("resolve ledger account %q", cfg.PartnerPayableAccount))
	}
	return &Accounts{
		PlatformLiability: platform.ID,
		PartnerPayable:    partner.ID,
	}, nil
}

// ErrAccountsUnresolved is returned by PostSettlement when the service was
// built without resolved accounts. Callers treat it as a consistency warning
// rather than a hard failure.
var ErrAccountsUnresolved = errors.New(errors.CodeDependency, "ledger accounts unresolved")

// SettlementInput describes the double-entry posting for one settled
// transaction: debit the platform liability, credit the partner payable.
type SettlementInput struct {
	TransactionID uuid.UUID
	ReferenceCode string
	Amount        decimal.Decimal
	Currency      string
}

// Service posts and reads double-entry ledger lines.
type Service interface {
	WithTx(tx *gorm.DB) Service
	PostSettlement(ctx context.Context, input SettlementInput) (*models.LedgerEntry, error)
	HasSettlementEntry(ctx context.Context, transactionID uuid.UUID) (bool, error)
	ListForTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.LedgerEntry, error)
}

// ServiceParams lists the dependencies of the ledger service.
type ServiceParams struct {
	Repo     Repository
	Accounts *Accounts
}

type service struct {
	repo     Repository
	accounts *Accounts
}

func NewService(params ServiceParams) Service {
	if params.Repo == nil {
		panic("ledger: ServiceParams.Repo is required")
	}
	return &service{repo: params.Repo, accounts: params.Accounts}
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx), accounts: s.accounts}
}

func (s *service) PostSettlement(ctx context.Context, input SettlementInput) (*models.LedgerEntry, error) {
	if s.accounts == nil {
		return nil, ErrAccountsUnresolved
	}
	if input.Amount.Sign() <= 0 {
		return nil, errors.New(errors.CodeValidation, "settlement amount must be positive")
	}
	if input.Currency == "" {
		return nil, errors.New(errors.CodeValidation, "settlement currency is required")
	}

	entry := &models.LedgerEntry{
		DebitAccountID:  s.accounts.PlatformLiability,
		CreditAccountID: s.accounts.PartnerPayable,
		Amount:          input.Amount,
		Currency:        input.Currency,
		Memo:            fmt.Sprintf("settlement %s", input.ReferenceCode),
		TransactionID:   input.TransactionID,
	}
	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "persist ledger entry")
	}
	return entry, nil
}

func (s *service) HasSettlementEntry(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	count, err := s.repo.CountEntriesByTransactionID(ctx, transactionID)
	if err != nil {
		return false, errors.Wrap(errors.CodeDependency, err, "count ledger entries")
	}
	return count > 0, nil
}

func (s *service) ListForTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.LedgerEntry, error) {
	out, err := s.repo.ListEntriesByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "list ledger entries")
	}
	return out, nil
}
