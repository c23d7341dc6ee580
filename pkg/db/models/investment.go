package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/pkg/enums"
)

// Investment is an investor position against a single gemstone. A partial
// unique index (see migrations) guarantees at most one ACTIVE row per product.
type Investment struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	InvestmentNumber string    `gorm:"column:investment_number;not null;uniqueIndex"`
	InvestorID       uuid.UUID `gorm:"column:investor_id;type:uuid;not null;index"`
	ProductID        uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`

	Amount               decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	ProfitMarginPercent  decimal.Decimal `gorm:"column:profit_margin_percent;type:numeric(5,2);not null"`
	ProfitSharingPercent decimal.Decimal `gorm:"column:profit_sharing_percent;type:numeric(5,2);not null"`
	EstimatedProfit      decimal.Decimal `gorm:"column:estimated_profit;type:numeric(14,2);not null"`
	TotalExpectedReturn  decimal.Decimal `gorm:"column:total_expected_return;type:numeric(14,2);not null"`

	Status      enums.InvestmentStatus `gorm:"column:status;type:text;not null;default:'ACTIVE';index"`
	InvestedAt  time.Time              `gorm:"column:invested_at;not null"`
	CompletedAt *time.Time             `gorm:"column:completed_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not.
func (i *Investment) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
