package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/pkg/enums"
)

// Payout is an investor's withdrawal request. Amount snapshots totalEarnings
// at request time; earnings are only debited when the request completes.
type Payout struct {
	ID uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	// the partial unique index allows one open request per investor
	InvestorID uuid.UUID `gorm:"column:investor_id;type:uuid;not null;index;index:idx_payouts_one_open_per_investor,unique,where:status = 'pending' OR status = 'processing'"`

	Method            enums.PayoutMethod `gorm:"column:method;type:text;not null"`
	AccountHolderName string             `gorm:"column:account_holder_name;not null"`
	IBAN              *string            `gorm:"column:iban"`
	PhoneNumber       *string            `gorm:"column:phone_number"`

	Amount   decimal.Decimal    `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency string             `gorm:"column:currency;not null;default:'PKR'"`
	Status   enums.PayoutStatus `gorm:"column:status;type:text;not null;default:'pending';index"`

	ProcessedAt *time.Time `gorm:"column:processed_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not.
func (p *Payout) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
