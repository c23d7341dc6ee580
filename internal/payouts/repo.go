package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/pkg/db/models"
	"github.com/gemvault/gemvault-backend/pkg/enums"
	"github.com/gemvault/gemvault-backend/pkg/pagination"
)

// Repository manages persistence for payout requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.Payout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	CountOpenByInvestor(ctx context.Context, investorID uuid.UUID) (int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListByInvestor(ctx context.Context, investorID uuid.UUID, page pagination.Params) ([]models.Payout, error)
	List(ctx context.Context, status *enums.PayoutStatus, page pagination.Params) ([]models.Payout, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payouts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	if err := r.db.WithContext(ctx).First(&payout, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) CountOpenByInvestor(ctx context.Context, investorID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("investor_id = ? AND status IN ?", investorID,
			[]enums.PayoutStatus{enums.PayoutStatusPending, enums.PayoutStatusProcessing}).
		Count(&count).Error
	return count, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListByInvestor(ctx context.Context, investorID uuid.UUID, page pagination.Params) ([]models.Payout, error) {
	var payouts []models.Payout
	if err := pagination.Apply(r.db.WithContext(ctx), page).
		Where("investor_id = ?", investorID).
		Order("created_at DESC").
		Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repository) List(ctx context.Context, status *enums.PayoutStatus, page pagination.Params) ([]models.Payout, error) {
	query := pagination.Apply(r.db.WithContext(ctx).Model(&models.Payout{}), page)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var payouts []models.Payout
	if err := query.Order("created_at DESC").Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}
