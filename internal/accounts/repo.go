package accounts

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/pkg/db/models"
)

// Repository manages account rows. Balance and earnings movements are single
// conditional updates so concurrent spends cannot take a wallet negative.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error

	// DebitBalance subtracts amount if the balance covers it. Returns the
	// number of rows touched; zero means insufficient funds or no such user.
	DebitBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error)
	CreditBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error)

	// ShiftInvestment moves amount between the wallet totals that track
	// capital at work. A positive amount records new investment.
	ShiftInvestment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error

	// CreditEarnings books a matured investment's return and profit.
	CreditEarnings(ctx context.Context, id uuid.UUID, earnings, profit decimal.Decimal) error

	// DebitEarnings subtracts a completed payout if earnings cover it.
	DebitEarnings(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an accounts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) DebitBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND balance >= ?", id, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	return result.RowsAffected, result.Error
}

func (r *repository) CreditBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", amount))
	return result.RowsAffected, result.Error
}

func (r *repository) ShiftInvestment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("total_investment", gorm.Expr("total_investment + ?", amount)).Error
}

func (r *repository) CreditEarnings(ctx context.Context, id uuid.UUID, earnings, profit decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"total_earnings": gorm.Expr("total_earnings + ?", earnings),
			"pure_profit":    gorm.Expr("pure_profit + ?", profit),
		}).Error
}

func (r *repository) DebitEarnings(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND total_earnings >= ?", id, amount).
		Update("total_earnings", gorm.Expr("total_earnings - ?", amount))
	return result.RowsAffected, result.Error
}
