// Package ledger records every monetary movement as an immutable transaction
// row. Order entries are created once at placement and only their status
// follows the order afterwards.
package ledger

import (
	"context"
	"encoding/json"
	stdErrors "errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/pkg/db/models"
	"github.com/gemvault/gemvault-backend/pkg/enums"
	"github.com/gemvault/gemvault-backend/pkg/errors"
	"github.com/gemvault/gemvault-backend/pkg/pagination"
	"github.com/gemvault/gemvault-backend/pkg/refnum"
)

// Service defines the operations that write to the money ledger.
type Service interface {
	// RecordPurchase creates the single pending entry for a freshly placed
	// order. A second call for the same order is a conflict.
	RecordPurchase(ctx context.Context, input RecordPurchaseInput) (*models.Transaction, error)

	// MarkOrderOutcome moves the order's purchase entry in lock-step with the
	// order itself.
	MarkOrderOutcome(ctx context.Context, orderID uuid.UUID, status enums.TransactionStatus, paymentRef *string) error

	// RecordInvestment writes the settled entry for an opened investment.
	RecordInvestment(ctx context.Context, input RecordInvestmentInput) (*models.Transaction, error)

	// RecordInvestmentRefund writes the compensating entry for a refunded
	// investment.
	RecordInvestmentRefund(ctx context.Context, input RecordInvestmentInput) (*models.Transaction, error)

	// RecordWalletCredit writes a balance top-up entry, used when a cancelled
	// wallet-paid order returns funds to the buyer.
	RecordWalletCredit(ctx context.Context, input RecordWalletCreditInput) (*models.Transaction, error)

	// ListByUser returns a user's transactions, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Transaction, error)

	// WithTx returns a Service whose writes join the given transaction.
	WithTx(tx *gorm.DB) Service
}

type service struct {
	repo Repository
}

// RecordPurchaseInput captures the immutable data an order entry requires.
type RecordPurchaseInput struct {
	OrderID  uuid.UUID
	UserID   *uuid.UUID
	Source   enums.PaymentMethod
	Amount   decimal.Decimal
	Metadata json.RawMessage
}

// RecordInvestmentInput captures an investment debit or refund credit.
type RecordInvestmentInput struct {
	UserID        uuid.UUID
	InvestmentID  uuid.UUID
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Metadata      json.RawMessage
}

// RecordWalletCreditInput captures a balance top-up.
type RecordWalletCreditInput struct {
	UserID        uuid.UUID
	OrderID       *uuid.UUID
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Metadata      json.RawMessage
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New(errors.CodeInternal, "ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) RecordPurchase(ctx context.Context, input RecordPurchaseInput) (*models.Transaction, error) {
	if input.OrderID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "order id is required")
	}
	if !input.Source.IsValid() {
		return nil, errors.New(errors.CodeValidation, "invalid payment method")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New(errors.CodeValidation, "amount must be positive")
	}

	existing, err := s.repo.FindByOrderID(ctx, input.OrderID, enums.TransactionTypeGemstonePurchase)
	if err != nil && !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to look up order entry")
	}
	if existing != nil {
		return nil, errors.New(errors.CodeConflict, "order already has a purchase entry")
	}

	orderID := input.OrderID
	txn := &models.Transaction{
		TransactionNumber: refnum.New(refnum.PrefixTransaction),
		UserID:            input.UserID,
		OrderID:           &orderID,
		Type:              enums.TransactionTypeGemstonePurchase,
		Source:            input.Source,
		Status:            enums.TransactionStatusPending,
		Amount:            input.Amount,
		Metadata:          input.Metadata,
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to record purchase entry")
	}
	return txn, nil
}

func (s *service) MarkOrderOutcome(ctx context.Context, orderID uuid.UUID, status enums.TransactionStatus, paymentRef *string) error {
	if orderID == uuid.Nil {
		return errors.New(errors.CodeValidation, "order id is required")
	}
	if !status.IsValid() {
		return errors.New(errors.CodeValidation, "invalid transaction status")
	}

	txn, err := s.repo.FindByOrderID(ctx, orderID, enums.TransactionTypeGemstonePurchase)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New(errors.CodeNotFound, "order has no purchase entry")
		}
		return errors.Wrap(errors.CodeInternal, err, "failed to look up order entry")
	}
	if err := s.repo.UpdateStatus(ctx, txn.ID, status, paymentRef); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "failed to update order entry")
	}
	return nil
}

func (s *service) RecordInvestment(ctx context.Context, input RecordInvestmentInput) (*models.Transaction, error) {
	return s.recordInvestmentEntry(ctx, input, enums.TransactionTypeInvestment)
}

func (s *service) RecordInvestmentRefund(ctx context.Context, input RecordInvestmentInput) (*models.Transaction, error) {
	return s.recordInvestmentEntry(ctx, input, enums.TransactionTypeInvestmentRefund)
}

func (s *service) recordInvestmentEntry(ctx context.Context, input RecordInvestmentInput, txnType enums.TransactionType) (*models.Transaction, error) {
	if input.UserID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	if input.InvestmentID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "investment id is required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New(errors.CodeValidation, "amount must be positive")
	}

	userID := input.UserID
	investmentID := input.InvestmentID
	before := input.BalanceBefore
	after := input.BalanceAfter
	txn := &models.Transaction{
		TransactionNumber: refnum.New(refnum.PrefixTransaction),
		UserID:            &userID,
		InvestmentID:      &investmentID,
		Type:              txnType,
		Source:            enums.PaymentMethodSoftWallet,
		Status:            enums.TransactionStatusSuccess,
		Amount:            input.Amount,
		BalanceBefore:     &before,
		BalanceAfter:      &after,
		Metadata:          input.Metadata,
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to record investment entry")
	}
	return txn, nil
}

func (s *service) RecordWalletCredit(ctx context.Context, input RecordWalletCreditInput) (*models.Transaction, error) {
	if input.UserID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New(errors.CodeValidation, "amount must be positive")
	}

	userID := input.UserID
	before := input.BalanceBefore
	after := input.BalanceAfter
	txn := &models.Transaction{
		TransactionNumber: refnum.New(refnum.PrefixTransaction),
		UserID:            &userID,
		OrderID:           input.OrderID,
		Type:              enums.TransactionTypeBalanceTopup,
		Source:            enums.PaymentMethodSoftWallet,
		Status:            enums.TransactionStatusSuccess,
		Amount:            input.Amount,
		BalanceBefore:     &before,
		BalanceAfter:      &after,
		Metadata:          input.Metadata,
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to record wallet credit")
	}
	return txn, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Transaction, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	txns, err := s.repo.ListByUserID(ctx, userID, page)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to list transactions")
	}
	return txns, nil
}
