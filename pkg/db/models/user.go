package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/pkg/enums"
)

// User is a platform account. Investor fields are embedded because investor
// state is 1:1 with the account and changes inside the same transactions as
// balance movements.
type User struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email        string    `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	FirstName    string    `gorm:"column:first_name;not null"`
	LastName     string    `gorm:"column:last_name"`
	Role         string    `gorm:"column:role;not null;default:'user'"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`

	IsInvestor      bool                 `gorm:"column:is_investor;not null;default:false"`
	InvestorNumber  *string              `gorm:"column:investor_number;uniqueIndex"`
	InvestorStatus  enums.InvestorStatus `gorm:"column:investor_status;type:text;not null;default:'not_applied'"`
	Balance         decimal.Decimal      `gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	TotalInvestment decimal.Decimal      `gorm:"column:total_investment;type:numeric(14,2);not null;default:0"`
	TotalEarnings   decimal.Decimal      `gorm:"column:total_earnings;type:numeric(14,2);not null;default:0"`
	PureProfit      decimal.Decimal      `gorm:"column:pure_profit;type:numeric(14,2);not null;default:0"`
	AppliedAt       *time.Time           `gorm:"column:applied_at"`
	ApprovedAt      *time.Time           `gorm:"column:approved_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
