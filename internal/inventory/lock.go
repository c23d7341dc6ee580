// Package inventory guards product state transitions with conditional
// updates so that concurrent buyers and investors cannot double-claim a
// gemstone.
package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/pkg/db/models"
	"github.com/gemvault/gemvault-backend/pkg/enums"
	"github.com/gemvault/gemvault-backend/pkg/errors"
)

// Lock acquires and releases gemstones by flipping their status in a single
// conditional UPDATE. Zero rows affected means another request won the race
// (or the product does not exist); callers get a typed error either way.
type Lock interface {
	// AcquireForInvestment moves an investor-catalog product onto the public
	// storefront. The product must be Available on the INVESTOR portal and
	// active.
	AcquireForInvestment(ctx context.Context, productID uuid.UUID) (*models.Product, error)

	// AcquireForOrder reserves a storefront product for a placed order. The
	// product must be For Sale and active; it becomes Reserved and inactive.
	AcquireForOrder(ctx context.Context, productID uuid.UUID) (*models.Product, error)

	// ReleaseToMarket returns a Reserved product to sale. Reservation never
	// touches the portal, so the stone reappears on whichever storefront it
	// was listed on before the order claimed it.
	ReleaseToMarket(ctx context.Context, productID uuid.UUID) error

	// ReleaseToInvestors returns a Reserved product to the investor catalog.
	// Used when the investment behind a cancelled order's product was
	// unwound while the stone sat reserved.
	ReleaseToInvestors(ctx context.Context, productID uuid.UUID) error

	// MarkSold finalizes a Reserved product on delivery.
	MarkSold(ctx context.Context, productID uuid.UUID) error

	// RevertInvestment undoes AcquireForInvestment when an investment is
	// refunded. The product must still be For Sale and active (not reserved
	// by an order).
	RevertInvestment(ctx context.Context, productID uuid.UUID) error

	// WithTx returns a Lock bound to the given transaction.
	WithTx(tx *gorm.DB) Lock
}

type lock struct {
	db *gorm.DB
}

// NewLock builds a Lock on top of the given gorm handle.
func NewLock(db *gorm.DB) (Lock, error) {
	if db == nil {
		return nil, errors.New(errors.CodeInternal, "inventory: db is required")
	}
	return &lock{db: db}, nil
}

func (l *lock) WithTx(tx *gorm.DB) Lock {
	return &lock{db: tx}
}

func (l *lock) AcquireForInvestment(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	return l.flipAndFetch(ctx, productID,
		map[string]any{
			"status":    enums.ProductStatusAvailable,
			"portal":    enums.ProductPortalInvestor,
			"is_active": true,
		},
		map[string]any{
			"status": enums.ProductStatusForSale,
			"portal": enums.ProductPortalPublicByInvested,
		},
		"product is not open for investment")
}

func (l *lock) AcquireForOrder(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	return l.flipAndFetch(ctx, productID,
		map[string]any{
			"status":    enums.ProductStatusForSale,
			"is_active": true,
		},
		map[string]any{
			"status":    enums.ProductStatusReserved,
			"is_active": false,
		},
		"product is no longer available for purchase")
}

func (l *lock) ReleaseToMarket(ctx context.Context, productID uuid.UUID) error {
	return l.flip(ctx, productID,
		map[string]any{"status": enums.ProductStatusReserved},
		map[string]any{
			"status":    enums.ProductStatusForSale,
			"is_active": true,
		},
		"product is not reserved")
}

func (l *lock) ReleaseToInvestors(ctx context.Context, productID uuid.UUID) error {
	return l.flip(ctx, productID,
		map[string]any{"status": enums.ProductStatusReserved},
		map[string]any{
			"status":    enums.ProductStatusAvailable,
			"portal":    enums.ProductPortalInvestor,
			"is_active": true,
		},
		"product is not reserved")
}

func (l *lock) MarkSold(ctx context.Context, productID uuid.UUID) error {
	return l.flip(ctx, productID,
		map[string]any{"status": enums.ProductStatusReserved},
		map[string]any{"status": enums.ProductStatusSold},
		"product is not reserved")
}

func (l *lock) RevertInvestment(ctx context.Context, productID uuid.UUID) error {
	return l.flip(ctx, productID,
		map[string]any{
			"status":    enums.ProductStatusForSale,
			"portal":    enums.ProductPortalPublicByInvested,
			"is_active": true,
		},
		map[string]any{
			"status": enums.ProductStatusAvailable,
			"portal": enums.ProductPortalInvestor,
		},
		"product has a pending order and cannot be reverted")
}

func (l *lock) flip(ctx context.Context, productID uuid.UUID, want, set map[string]any, conflictMsg string) error {
	result := l.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Where(want).
		Updates(set)
	if result.Error != nil {
		return errors.Wrap(errors.CodeInternal, result.Error, "failed to update product state")
	}
	if result.RowsAffected == 0 {
		return l.classifyMiss(ctx, productID, conflictMsg)
	}
	return nil
}

func (l *lock) flipAndFetch(ctx context.Context, productID uuid.UUID, want, set map[string]any, conflictMsg string) (*models.Product, error) {
	if err := l.flip(ctx, productID, want, set, conflictMsg); err != nil {
		return nil, err
	}
	var product models.Product
	if err := l.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to load product")
	}
	return &product, nil
}

// classifyMiss distinguishes a lost race from a missing row.
func (l *lock) classifyMiss(ctx context.Context, productID uuid.UUID, conflictMsg string) error {
	var count int64
	if err := l.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Count(&count).Error; err != nil {
		return errors.Wrap(errors.CodeInternal, err, "failed to look up product")
	}
	if count == 0 {
		return errors.New(errors.CodeNotFound, "product not found")
	}
	return errors.New(errors.CodeStateConflict, conflictMsg)
}
