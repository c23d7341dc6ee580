package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/pkg/enums"
)

// Product represents a single gemstone unit. Status, Portal and IsActive form
// one state machine: only the inventory lock and settlement transitions may
// change them together.
type Product struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductNumber string    `gorm:"column:product_number;not null;uniqueIndex"`
	Name          string    `gorm:"column:name;not null"`
	Description   string    `gorm:"column:description"`
	GemType       string    `gorm:"column:gem_type"`

	Price                decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	ProfitMarginPercent  decimal.Decimal `gorm:"column:profit_margin_percent;type:numeric(5,2);not null;default:0"`
	ProfitSharingPercent decimal.Decimal `gorm:"column:profit_sharing_percent;type:numeric(5,2);not null;default:0"`

	Status   enums.ProductStatus `gorm:"column:status;type:text;not null;default:'Available'"`
	Portal   enums.ProductPortal `gorm:"column:portal;type:text;not null;default:'INVESTOR'"`
	IsActive bool                `gorm:"column:is_active;not null;default:true"`

	Colors pq.StringArray `gorm:"column:colors;type:text[]"`
	Tags   pq.StringArray `gorm:"column:tags;type:text[]"`

	PrimaryImageURL string `gorm:"column:primary_image_url"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not.
func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
