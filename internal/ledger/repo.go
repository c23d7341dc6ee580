package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/pkg/db/models"
	"github.com/gemvault/gemvault-backend/pkg/enums"
	"github.com/gemvault/gemvault-backend/pkg/pagination"
)

// Repository manages persistence for ledger transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID, txnType enums.TransactionType) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.TransactionStatus, paymentRef *string) error
	ListByUserID(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Transaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID, txnType enums.TransactionType) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND type = ?", orderID, txnType).
		Order("created_at ASC").
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.TransactionStatus, paymentRef *string) error {
	updates := map[string]any{"status": status}
	if paymentRef != nil {
		updates["payment_ref"] = *paymentRef
	}
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListByUserID(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Transaction, error) {
	var txns []models.Transaction
	if err := pagination.Apply(r.db.WithContext(ctx), page).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
