package payouts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/internal/accounts"
	pkgdb "github.com/gemvault/gemvault-backend/pkg/db"
	"github.com/gemvault/gemvault-backend/pkg/db/models"
	"github.com/gemvault/gemvault-backend/pkg/enums"
	pkgerrors "github.com/gemvault/gemvault-backend/pkg/errors"
	"github.com/gemvault/gemvault-backend/pkg/pagination"
)

func TestRequest(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	investorID := h.seedInvestor(t, decimal.NewFromInt(1800))

	iban := "PK36SCBL0000001123456702"
	payout, err := h.svc.Request(ctx, RequestInput{
		InvestorID:        investorID,
		Method:            enums.PayoutMethodBank,
		AccountHolderName: "Ayesha Khan",
		IBAN:              &iban,
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if payout.Status != enums.PayoutStatusPending {
		t.Fatalf("unexpected status: %s", payout.Status)
	}
	if !payout.Amount.Equal(decimal.NewFromInt(1800)) {
		t.Fatalf("amount should snapshot earnings: %s", payout.Amount)
	}

	// earnings stay untouched until the request completes
	var investor models.User
	h.db.First(&investor, "id = ?", investorID)
	if !investor.TotalEarnings.Equal(decimal.NewFromInt(1800)) {
		t.Fatalf("earnings debited early: %s", investor.TotalEarnings)
	}

	// only one open request at a time
	_, err = h.svc.Request(ctx, RequestInput{
		InvestorID:        investorID,
		Method:            enums.PayoutMethodBank,
		AccountHolderName: "Ayesha Khan",
		IBAN:              &iban,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOpenPayoutIndexBlocksSecondWriter(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	investorID := h.seedInvestor(t, decimal.NewFromInt(500))

	// two writers that both passed the open-request count land on the
	// partial unique index
	first := openPayout(investorID)
	if err := h.db.Create(first).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	second := openPayout(investorID)
	err := h.db.Create(second).Error
	if !pkgdb.IsUniqueViolation(err, "") {
		t.Fatalf("expected a unique violation, got %v", err)
	}

	// a settled request frees the slot
	h.db.Model(first).Update("status", enums.PayoutStatusCompleted)
	if err := h.db.Create(openPayout(investorID)).Error; err != nil {
		t.Fatalf("insert after completion: %v", err)
	}
}

func openPayout(investorID uuid.UUID) *models.Payout {
	return &models.Payout{
		InvestorID:        investorID,
		Method:            enums.PayoutMethodSadaPay,
		AccountHolderName: "Ayesha Khan",
		Amount:            decimal.NewFromInt(500),
		Status:            enums.PayoutStatusPending,
	}
}

func TestRequestValidation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	investorID := h.seedInvestor(t, decimal.NewFromInt(500))
	phone := "+923001234567"

	t.Run("bank needs iban", func(t *testing.T) {
		_, err := h.svc.Request(ctx, RequestInput{
			InvestorID:        investorID,
			Method:            enums.PayoutMethodBank,
			AccountHolderName: "X",
			PhoneNumber:       &phone,
		})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("wallet needs phone", func(t *testing.T) {
		_, err := h.svc.Request(ctx, RequestInput{
			InvestorID:        investorID,
			Method:            enums.PayoutMethodJazzCash,
			AccountHolderName: "X",
		})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("no earnings", func(t *testing.T) {
		broke := h.seedInvestor(t, decimal.Zero)
		_, err := h.svc.Request(ctx, RequestInput{
			InvestorID:        broke,
			Method:            enums.PayoutMethodJazzCash,
			AccountHolderName: "X",
			PhoneNumber:       &phone,
		})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestUpdateStatusCompleted(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	investorID := h.seedInvestor(t, decimal.NewFromInt(1800))
	phone := "+923001234567"

	payout, err := h.svc.Request(ctx, RequestInput{
		InvestorID:        investorID,
		Method:            enums.PayoutMethodEasyPaisa,
		AccountHolderName: "Ayesha Khan",
		PhoneNumber:       &phone,
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if _, err := h.svc.UpdateStatus(ctx, payout.ID, enums.PayoutStatusProcessing); err != nil {
		t.Fatalf("processing: %v", err)
	}

	updated, err := h.svc.UpdateStatus(ctx, payout.ID, enums.PayoutStatusCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if updated.Status != enums.PayoutStatusCompleted || updated.ProcessedAt == nil {
		t.Fatalf("unexpected payout: %+v", updated)
	}

	var investor models.User
	h.db.First(&investor, "id = ?", investorID)
	if !investor.TotalEarnings.IsZero() {
		t.Fatalf("earnings not debited: %s", investor.TotalEarnings)
	}

	// completed is terminal
	_, err = h.svc.UpdateStatus(ctx, payout.ID, enums.PayoutStatusFailed)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateStatusCompletedInsufficientEarnings(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	investorID := h.seedInvestor(t, decimal.NewFromInt(1000))
	phone := "+923001234567"

	payout, err := h.svc.Request(ctx, RequestInput{
		InvestorID:        investorID,
		Method:            enums.PayoutMethodSadaPay,
		AccountHolderName: "Ayesha Khan",
		PhoneNumber:       &phone,
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	// earnings shrink between request and completion
	h.db.Model(&models.User{}).Where("id = ?", investorID).
		Update("total_earnings", decimal.NewFromInt(500))

	_, err = h.svc.UpdateStatus(ctx, payout.ID, enums.PayoutStatusCompleted)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	// the failed completion must leave the request open
	reloaded, ferr := h.svc.List(ctx, nil, pagination.Params{})
	if ferr != nil || len(reloaded) != 1 {
		t.Fatalf("list payouts: %v", ferr)
	}
	if reloaded[0].Status != enums.PayoutStatusPending {
		t.Fatalf("payout status changed: %s", reloaded[0].Status)
	}
}

type harness struct {
	db  *gorm.DB
	svc Service
}

func (h *harness) seedInvestor(t *testing.T, earnings decimal.Decimal) uuid.UUID {
	t.Helper()
	number := "IVR-" + uuid.NewString()[:8]
	user := models.User{
		Email:          uuid.NewString() + "@example.com",
		PasswordHash:   "x",
		FirstName:      "Test",
		IsInvestor:     true,
		InvestorNumber: &number,
		InvestorStatus: enums.InvestorStatusApproved,
		TotalEarnings:  earnings,
	}
	if err := h.db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user.ID
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dsn := "file:payouts_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Payout{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	accountsSvc, err := accounts.NewService(accounts.NewRepository(db))
	if err != nil {
		t.Fatalf("new accounts service: %v", err)
	}
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, accountsSvc)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &harness{db: db, svc: svc}
}
