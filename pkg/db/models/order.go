package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/pkg/enums"
)

// Order is a checkout outcome. Guest checkout leaves UserID nil.
type Order struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber string     `gorm:"column:order_number;not null;uniqueIndex"`
	UserID      *uuid.UUID `gorm:"column:user_id;type:uuid;index"`

	CustomerName    string `gorm:"column:customer_name;not null"`
	CustomerPhone   string `gorm:"column:customer_phone;not null"`
	ShippingAddress string `gorm:"column:shipping_address;not null"`
	ShippingCity    string `gorm:"column:shipping_city;not null"`

	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(14,2);not null"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'PENDING';index"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'COD'"`
	IsPaid        bool                `gorm:"column:is_paid;not null;default:false"`
	PaymentRef    *string             `gorm:"column:payment_ref"`

	PaidAt       *time.Time `gorm:"column:paid_at"`
	DispatchedAt *time.Time `gorm:"column:dispatched_at"`
	DeliveredAt  *time.Time `gorm:"column:delivered_at"`
	CancelledAt  *time.Time `gorm:"column:cancelled_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not.
func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is one gemstone on an order. InvestmentID links the unit back to
// the investor position that funded it; nil for plain public catalog items.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	InvestmentID *uuid.UUID      `gorm:"column:investment_id;type:uuid"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns an id when the caller did not.
func (i *OrderItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
