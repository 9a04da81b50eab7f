package agents

import (
	"context"

	"github.com/YuniorRivera/remesas-haiti-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository manages payout agents and their float balances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	CreditFloat(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error)
	Create(ctx context.Context, agent *models.Agent) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	var agent models.Agent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&agent).Error
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

// CreditFloat adds amount to the agent's float balance in a single UPDATE so
// concurrent reversals never read-modify-write a stale balance.
func (r *repository) CreditFloat(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id = ?", id).
		Update("float_balance", gorm.Expr("float_balance + ?", amount))
	return res.RowsAffected, res.Error
}

func (r *repository) Create(ctx context.Context, agent *models.Agent) error {
	if agent.ID == uuid.Nil {
		agent.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(agent).Error
}
