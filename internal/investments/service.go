// Package investments manages investor positions on gemstones: opening a
// position moves the stone onto the public storefront, delivery completes the
// position, and refunds unwind it.
package investments

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/internal/accounts"
	"github.com/gemvault/gemvault-backend/internal/inventory"
	"github.com/gemvault/gemvault-backend/internal/ledger"
	"github.com/gemvault/gemvault-backend/pkg/db/models"
	"github.com/gemvault/gemvault-backend/pkg/enums"
	"github.com/gemvault/gemvault-backend/pkg/errors"
	"github.com/gemvault/gemvault-backend/pkg/pagination"
	"github.com/gemvault/gemvault-backend/pkg/refnum"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the investment lifecycle operations.
type Service interface {
	// Open buys an investor into a product at its listed price.
	Open(ctx context.Context, input OpenInput) (*models.Investment, error)

	// CloseForProducts completes the active positions behind delivered
	// products and books each investor's return. It runs inside the caller's
	// transaction.
	CloseForProducts(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID, completedAt time.Time) error

	// Refund unwinds an active position after the holding window has passed,
	// returning the stone to the investor catalog.
	Refund(ctx context.Context, input RefundInput) error

	// ActivePosition returns the active position behind a product, or nil
	// when the product is not investor-backed.
	ActivePosition(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Investment, error)

	// ListByInvestor returns an investor's positions, newest first.
	ListByInvestor(ctx context.Context, investorID uuid.UUID, page pagination.Params) ([]models.Investment, error)
}

// OpenInput identifies the investor and the product being bought into.
type OpenInput struct {
	InvestorID uuid.UUID
	ProductID  uuid.UUID
}

// RefundInput identifies the position being unwound and its claimed owner.
type RefundInput struct {
	InvestorID   uuid.UUID
	InvestmentID uuid.UUID
}

type service struct {
	repo     Repository
	tx       txRunner
	lock     inventory.Lock
	accounts accounts.Service
	ledger   ledger.Service
	cooldown time.Duration
	now      func() time.Time
}

// NewService builds an investments service with the required dependencies.
// cooldown is how long a position must be held before it can be refunded.
func NewService(repo Repository, tx txRunner, lock inventory.Lock, accountsSvc accounts.Service, ledgerSvc ledger.Service, cooldown time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("investments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if lock == nil {
		return nil, fmt.Errorf("inventory lock required")
	}
	if accountsSvc == nil {
		return nil, fmt.Errorf("accounts service required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		lock:     lock,
		accounts: accountsSvc,
		ledger:   ledgerSvc,
		cooldown: cooldown,
		now:      time.Now,
	}, nil
}

// EstimateProfit computes the investor's share of a product's projected
// margin, rounded to the cent.
func EstimateProfit(amount, marginPercent, sharingPercent decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	return amount.
		Mul(marginPercent).Div(hundred).
		Mul(sharingPercent).Div(hundred).
		Round(2)
}

func (s *service) Open(ctx context.Context, input OpenInput) (*models.Investment, error) {
	if input.InvestorID == uuid.Nil {
		return nil, errors.New(errors.CodeUnauthorized, "investor identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "product id required")
	}

	var investment *models.Investment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		investor, err := s.accounts.WithTx(tx).FindApprovedInvestor(ctx, input.InvestorID)
		if err != nil {
			return err
		}

		// winning this update is what makes the position exclusive
		product, err := s.lock.WithTx(tx).AcquireForInvestment(ctx, input.ProductID)
		if err != nil {
			return err
		}

		amount := product.Price
		move, err := s.accounts.WithTx(tx).Debit(ctx, investor.ID, amount)
		if err != nil {
			return err
		}
		if err := s.accounts.WithTx(tx).ShiftInvestment(ctx, investor.ID, amount); err != nil {
			return err
		}

		profit := EstimateProfit(amount, product.ProfitMarginPercent, product.ProfitSharingPercent)
		investment = &models.Investment{
			InvestmentNumber:     refnum.New(refnum.PrefixInvestment),
			InvestorID:           investor.ID,
			ProductID:            product.ID,
			Amount:               amount,
			ProfitMarginPercent:  product.ProfitMarginPercent,
			ProfitSharingPercent: product.ProfitSharingPercent,
			EstimatedProfit:      profit,
			TotalExpectedReturn:  amount.Add(profit),
			Status:               enums.InvestmentStatusActive,
			InvestedAt:           s.now().UTC(),
		}
		if err := s.repo.WithTx(tx).Create(ctx, investment); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "failed to create investment")
		}

		metadata, _ := json.Marshal(map[string]string{
			"product_id":        product.ID.String(),
			"investment_number": investment.InvestmentNumber,
		})
		_, err = s.ledger.WithTx(tx).RecordInvestment(ctx, ledger.RecordInvestmentInput{
			UserID:        investor.ID,
			InvestmentID:  investment.ID,
			Amount:        amount,
			BalanceBefore: move.Before,
			BalanceAfter:  move.After,
			Metadata:      metadata,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return investment, nil
}

func (s *service) CloseForProducts(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID, completedAt time.Time) error {
	if tx == nil {
		return errors.New(errors.CodeInternal, "transaction required to close positions")
	}

	repo := s.repo.WithTx(tx)
	accountsSvc := s.accounts.WithTx(tx)
	for _, productID := range productIDs {
		investment, err := repo.FindActiveByProductID(ctx, productID)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return errors.Wrap(errors.CodeInternal, err, "failed to look up position")
		}

		if err := repo.MarkCompleted(ctx, investment.ID, completedAt); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "failed to complete position")
		}
		if err := accountsSvc.CreditEarnings(ctx, investment.InvestorID, investment.TotalExpectedReturn, investment.EstimatedProfit); err != nil {
			return err
		}
		if err := accountsSvc.ShiftInvestment(ctx, investment.InvestorID, investment.Amount.Neg()); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) Refund(ctx context.Context, input RefundInput) error {
	if input.InvestorID == uuid.Nil {
		return errors.New(errors.CodeUnauthorized, "investor identity missing")
	}
	if input.InvestmentID == uuid.Nil {
		return errors.New(errors.CodeValidation, "investment id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		investment, err := repo.FindByID(ctx, input.InvestmentID)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.CodeNotFound, "investment not found")
			}
			return errors.Wrap(errors.CodeInternal, err, "failed to load investment")
		}
		if investment.InvestorID != input.InvestorID {
			return errors.New(errors.CodeForbidden, "investment does not belong to investor")
		}
		if investment.Status != enums.InvestmentStatusActive {
			return errors.New(errors.CodeStateConflict, "only active investments can be refunded")
		}

		if held := s.now().Sub(investment.InvestedAt); held < s.cooldown {
			remaining := s.cooldown - held
			hours := int(remaining.Hours())
			if remaining > time.Duration(hours)*time.Hour {
				hours++
			}
			return errors.New(errors.CodeStateConflict, "investment is still inside the holding window").
				WithDetails(map[string]any{"hours_remaining": hours})
		}

		// fails when an order already reserved the stone
		if err := s.lock.WithTx(tx).RevertInvestment(ctx, investment.ProductID); err != nil {
			return err
		}

		move, err := s.accounts.WithTx(tx).Credit(ctx, investment.InvestorID, investment.Amount)
		if err != nil {
			return err
		}
		if err := s.accounts.WithTx(tx).ShiftInvestment(ctx, investment.InvestorID, investment.Amount.Neg()); err != nil {
			return err
		}
		if err := repo.Delete(ctx, investment.ID); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "failed to remove investment")
		}

		metadata, _ := json.Marshal(map[string]string{
			"product_id":        investment.ProductID.String(),
			"investment_number": investment.InvestmentNumber,
		})
		_, err = s.ledger.WithTx(tx).RecordInvestmentRefund(ctx, ledger.RecordInvestmentInput{
			UserID:        investment.InvestorID,
			InvestmentID:  investment.ID,
			Amount:        investment.Amount,
			BalanceBefore: move.Before,
			BalanceAfter:  move.After,
			Metadata:      metadata,
		})
		return err
	})
}

func (s *service) ActivePosition(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Investment, error) {
	repo := s.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	investment, err := repo.FindActiveByProductID(ctx, productID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to look up position")
	}
	return investment, nil
}

func (s *service) ListByInvestor(ctx context.Context, investorID uuid.UUID, page pagination.Params) ([]models.Investment, error) {
	if investorID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "investor id required")
	}
	investments, err := s.repo.ListByInvestor(ctx, investorID, page)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to list investments")
	}
	return investments, nil
}
