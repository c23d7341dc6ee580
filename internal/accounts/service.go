// Package accounts owns platform users and the investor wallet embedded in
// them. All wallet movements go through here so balances can never go
// negative, no matter how many requests race.
package accounts

import (
	"context"
	stdErrors "errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/pkg/db/models"
	"github.com/gemvault/gemvault-backend/pkg/enums"
	"github.com/gemvault/gemvault-backend/pkg/errors"
	"github.com/gemvault/gemvault-backend/pkg/security"
)

// WalletMovement reports the balance around a single debit or credit.
type WalletMovement struct {
	Before decimal.Decimal
	After  decimal.Decimal
}

// Service exposes account lookups and wallet movements.
type Service interface {
	Find(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// FindApprovedInvestor loads a user and checks they hold an approved
	// investor account.
	FindApprovedInvestor(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// Authenticate verifies a credential pair and returns the account.
	Authenticate(ctx context.Context, email, password string) (*models.User, error)

	// Debit takes amount from a wallet, failing when funds do not cover it.
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (WalletMovement, error)

	// Credit returns amount to a wallet.
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (WalletMovement, error)

	// ShiftInvestment adjusts the capital-at-work total by amount, which may
	// be negative on refund.
	ShiftInvestment(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error

	// CreditEarnings books a matured investment's return and its profit
	// portion.
	CreditEarnings(ctx context.Context, userID uuid.UUID, earnings, profit decimal.Decimal) error

	// DebitEarnings takes a completed payout out of accumulated earnings,
	// failing when they do not cover it.
	DebitEarnings(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error

	// WithTx returns a Service whose writes join the given transaction.
	WithTx(tx *gorm.DB) Service
}

type service struct {
	repo Repository
}

// NewService wires an accounts service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New(errors.CodeInternal, "accounts repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Find(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "user not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to load user")
	}
	return user, nil
}

func (s *service) FindApprovedInvestor(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsInvestor || user.InvestorStatus != enums.InvestorStatusApproved {
		return nil, errors.New(errors.CodeForbidden, "investor account is not approved")
	}
	return user, nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errors.New(errors.CodeValidation, "email and password are required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			// same answer as a wrong password so probes learn nothing
			return nil, errors.New(errors.CodeUnauthorized, "invalid credentials")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to load user")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to verify password")
	}
	if !ok {
		return nil, errors.New(errors.CodeUnauthorized, "invalid credentials")
	}
	if !user.IsActive {
		return nil, errors.New(errors.CodeForbidden, "account is disabled")
	}
	return user, nil
}

func (s *service) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (WalletMovement, error) {
	if err := validateMovement(userID, amount); err != nil {
		return WalletMovement{}, err
	}

	rows, err := s.repo.DebitBalance(ctx, userID, amount)
	if err != nil {
		return WalletMovement{}, errors.Wrap(errors.CodeInternal, err, "failed to debit wallet")
	}
	if rows == 0 {
		if _, ferr := s.Find(ctx, userID); ferr != nil {
			return WalletMovement{}, ferr
		}
		return WalletMovement{}, errors.New(errors.CodeStateConflict, "insufficient wallet balance")
	}

	user, err := s.Find(ctx, userID)
	if err != nil {
		return WalletMovement{}, err
	}
	return WalletMovement{Before: user.Balance.Add(amount), After: user.Balance}, nil
}

func (s *service) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (WalletMovement, error) {
	if err := validateMovement(userID, amount); err != nil {
		return WalletMovement{}, err
	}

	rows, err := s.repo.CreditBalance(ctx, userID, amount)
	if err != nil {
		return WalletMovement{}, errors.Wrap(errors.CodeInternal, err, "failed to credit wallet")
	}
	if rows == 0 {
		return WalletMovement{}, errors.New(errors.CodeNotFound, "user not found")
	}

	user, err := s.Find(ctx, userID)
	if err != nil {
		return WalletMovement{}, err
	}
	return WalletMovement{Before: user.Balance.Sub(amount), After: user.Balance}, nil
}

func (s *service) ShiftInvestment(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	if userID == uuid.Nil {
		return errors.New(errors.CodeValidation, "user id is required")
	}
	if err := s.repo.ShiftInvestment(ctx, userID, amount); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "failed to shift investment total")
	}
	return nil
}

func (s *service) CreditEarnings(ctx context.Context, userID uuid.UUID, earnings, profit decimal.Decimal) error {
	if userID == uuid.Nil {
		return errors.New(errors.CodeValidation, "user id is required")
	}
	if err := s.repo.CreditEarnings(ctx, userID, earnings, profit); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "failed to credit earnings")
	}
	return nil
}

func (s *service) DebitEarnings(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	if err := validateMovement(userID, amount); err != nil {
		return err
	}
	rows, err := s.repo.DebitEarnings(ctx, userID, amount)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "failed to debit earnings")
	}
	if rows == 0 {
		if _, ferr := s.Find(ctx, userID); ferr != nil {
			return ferr
		}
		return errors.New(errors.CodeStateConflict, "earnings do not cover the payout")
	}
	return nil
}

func validateMovement(userID uuid.UUID, amount decimal.Decimal) error {
	if userID == uuid.Nil {
		return errors.New(errors.CodeValidation, "user id is required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.New(errors.CodeValidation, "amount must be positive")
	}
	return nil
}
