package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/pkg/enums"
)

// Transaction is an immutable ledger entry for a monetary movement. Rows are
// created once and only their status field follows the owning order or
// investment; nothing here is ever deleted.
type Transaction struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	TransactionNumber string     `gorm:"column:transaction_number;not null;uniqueIndex"`
	UserID            *uuid.UUID `gorm:"column:user_id;type:uuid;index"`
	OrderID           *uuid.UUID `gorm:"column:order_id;type:uuid;index"`
	InvestmentID      *uuid.UUID `gorm:"column:investment_id;type:uuid;index"`

	Type   enums.TransactionType   `gorm:"column:type;type:text;not null"`
	Source enums.PaymentMethod     `gorm:"column:source;type:text"`
	Status enums.TransactionStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`

	Amount        decimal.Decimal  `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency      string           `gorm:"column:currency;not null;default:'PKR'"`
	BalanceBefore *decimal.Decimal `gorm:"column:balance_before;type:numeric(14,2)"`
	BalanceAfter  *decimal.Decimal `gorm:"column:balance_after;type:numeric(14,2)"`

	PaymentRef *string         `gorm:"column:payment_ref"`
	Metadata   json.RawMessage `gorm:"column:metadata;type:jsonb"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not.
func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
