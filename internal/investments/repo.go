package investments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/pkg/db/models"
	"github.com/gemvault/gemvault-backend/pkg/enums"
	"github.com/gemvault/gemvault-backend/pkg/pagination"
)

// Repository manages persistence for investment positions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, investment *models.Investment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Investment, error)
	FindActiveByProductID(ctx context.Context, productID uuid.UUID) (*models.Investment, error)
	ListByInvestor(ctx context.Context, investorID uuid.UUID, page pagination.Params) ([]models.Investment, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an investments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, investment *models.Investment) error {
	return r.db.WithContext(ctx).Create(investment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Investment, error) {
	var investment models.Investment
	if err := r.db.WithContext(ctx).First(&investment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &investment, nil
}

func (r *repository) FindActiveByProductID(ctx context.Context, productID uuid.UUID) (*models.Investment, error) {
	var investment models.Investment
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND status = ?", productID, enums.InvestmentStatusActive).
		First(&investment).Error
	if err != nil {
		return nil, err
	}
	return &investment, nil
}

func (r *repository) ListByInvestor(ctx context.Context, investorID uuid.UUID, page pagination.Params) ([]models.Investment, error) {
	var investments []models.Investment
	if err := pagination.Apply(r.db.WithContext(ctx), page).
		Where("investor_id = ?", investorID).
		Order("invested_at DESC").
		Find(&investments).Error; err != nil {
		return nil, err
	}
	return investments, nil
}

func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Investment{}).
		Where("id = ? AND status = ?", id, enums.InvestmentStatusActive).
		Updates(map[string]any{
			"status":       enums.InvestmentStatusCompleted,
			"completed_at": completedAt,
		}).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Investment{}, "id = ?", id).Error
}
