// Package payouts handles investor withdrawal requests. A request freezes the
// investor's earnings figure; the money only leaves their account when an
// admin marks the request completed.
package payouts

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/internal/accounts"
	"github.com/gemvault/gemvault-backend/pkg/db"
	"github.com/gemvault/gemvault-backend/pkg/db/models"
	"github.com/gemvault/gemvault-backend/pkg/enums"
	"github.com/gemvault/gemvault-backend/pkg/errors"
	"github.com/gemvault/gemvault-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

var payoutTransitions = map[enums.PayoutStatus][]enums.PayoutStatus{
	enums.PayoutStatusPending:    {enums.PayoutStatusProcessing, enums.PayoutStatusCompleted, enums.PayoutStatusFailed, enums.PayoutStatusCancelled},
	enums.PayoutStatusProcessing: {enums.PayoutStatusCompleted, enums.PayoutStatusFailed, enums.PayoutStatusCancelled},
}

// Service defines the payout request lifecycle.
type Service interface {
	// Request opens a withdrawal for the investor's full earnings. Only one
	// open request per investor is allowed.
	Request(ctx context.Context, input RequestInput) (*models.Payout, error)

	// UpdateStatus is the admin action moving a request forward. Completing a
	// request is what debits the investor's earnings, once and finally.
	UpdateStatus(ctx context.Context, payoutID uuid.UUID, next enums.PayoutStatus) (*models.Payout, error)

	ListByInvestor(ctx context.Context, investorID uuid.UUID, page pagination.Params) ([]models.Payout, error)
	List(ctx context.Context, status *enums.PayoutStatus, page pagination.Params) ([]models.Payout, error)
}

// RequestInput carries the destination account for a withdrawal.
type RequestInput struct {
	InvestorID        uuid.UUID
	Method            enums.PayoutMethod
	AccountHolderName string
	IBAN              *string
	PhoneNumber       *string
}

type service struct {
	repo     Repository
	tx       txRunner
	accounts accounts.Service
}

// NewService builds a payouts service with the required dependencies.
func NewService(repo Repository, tx txRunner, accountsSvc accounts.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if accountsSvc == nil {
		return nil, fmt.Errorf("accounts service required")
	}
	return &service{repo: repo, tx: tx, accounts: accountsSvc}, nil
}

func (s *service) Request(ctx context.Context, input RequestInput) (*models.Payout, error) {
	if input.InvestorID == uuid.Nil {
		return nil, errors.New(errors.CodeUnauthorized, "investor identity missing")
	}
	if !input.Method.IsValid() {
		return nil, errors.New(errors.CodeValidation, "invalid payout method")
	}
	if input.AccountHolderName == "" {
		return nil, errors.New(errors.CodeValidation, "account holder name required")
	}
	if input.Method.RequiresIBAN() {
		if input.IBAN == nil || *input.IBAN == "" {
			return nil, errors.New(errors.CodeValidation, "iban required for bank payouts")
		}
	} else if input.PhoneNumber == nil || *input.PhoneNumber == "" {
		return nil, errors.New(errors.CodeValidation, "phone number required for mobile wallet payouts")
	}

	var payout *models.Payout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		investor, err := s.accounts.WithTx(tx).FindApprovedInvestor(ctx, input.InvestorID)
		if err != nil {
			return err
		}

		open, err := s.repo.WithTx(tx).CountOpenByInvestor(ctx, investor.ID)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "failed to check open requests")
		}
		if open > 0 {
			return errors.New(errors.CodeConflict, "a payout request is already in progress")
		}
		if investor.TotalEarnings.LessThanOrEqual(decimal.Zero) {
			return errors.New(errors.CodeStateConflict, "no earnings available to withdraw")
		}

		payout = &models.Payout{
			InvestorID:        investor.ID,
			Method:            input.Method,
			AccountHolderName: input.AccountHolderName,
			IBAN:              input.IBAN,
			PhoneNumber:       input.PhoneNumber,
			Amount:            investor.TotalEarnings,
			Status:            enums.PayoutStatusPending,
		}
		if err := s.repo.WithTx(tx).Create(ctx, payout); err != nil {
			// the partial unique index catches the writer that lost a race
			// past the open-request count
			if db.IsUniqueViolation(err, "") {
				return errors.New(errors.CodeConflict, "a payout request is already in progress")
			}
			return errors.Wrap(errors.CodeInternal, err, "failed to create payout request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}

func (s *service) UpdateStatus(ctx context.Context, payoutID uuid.UUID, next enums.PayoutStatus) (*models.Payout, error) {
	if payoutID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "payout id required")
	}
	if !next.IsValid() {
		return nil, errors.New(errors.CodeValidation, "invalid payout status")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payout, err := repo.FindByID(ctx, payoutID)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.CodeNotFound, "payout not found")
			}
			return errors.Wrap(errors.CodeInternal, err, "failed to load payout")
		}
		if !canTransitionPayout(payout.Status, next) {
			return errors.New(errors.CodeStateConflict,
				fmt.Sprintf("payout cannot move from %s to %s", payout.Status, next))
		}

		updates := map[string]any{"status": next}
		if next == enums.PayoutStatusCompleted {
			if err := s.accounts.WithTx(tx).DebitEarnings(ctx, payout.InvestorID, payout.Amount); err != nil {
				return err
			}
			updates["processed_at"] = gorm.Expr("CURRENT_TIMESTAMP")
		}
		if err := repo.Update(ctx, payout.ID, updates); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "failed to update payout")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to reload payout")
	}
	return payout, nil
}

func (s *service) ListByInvestor(ctx context.Context, investorID uuid.UUID, page pagination.Params) ([]models.Payout, error) {
	if investorID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "investor id required")
	}
	payouts, err := s.repo.ListByInvestor(ctx, investorID, page)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to list payouts")
	}
	return payouts, nil
}

func (s *service) List(ctx context.Context, status *enums.PayoutStatus, page pagination.Params) ([]models.Payout, error) {
	if status != nil && !status.IsValid() {
		return nil, errors.New(errors.CodeValidation, "invalid payout status")
	}
	payouts, err := s.repo.List(ctx, status, page)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to list payouts")
	}
	return payouts, nil
}

func canTransitionPayout(from, to enums.PayoutStatus) bool {
	for _, next := range payoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
