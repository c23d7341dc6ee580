package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/internal/accounts"
	"github.com/gemvault/gemvault-backend/internal/inventory"
	"github.com/gemvault/gemvault-backend/internal/investments"
	"github.com/gemvault/gemvault-backend/internal/ledger"
	"github.com/gemvault/gemvault-backend/pkg/config"
	"github.com/gemvault/gemvault-backend/pkg/db/models"
	"github.com/gemvault/gemvault-backend/pkg/enums"
	pkgerrors "github.com/gemvault/gemvault-backend/pkg/errors"
)

func TestPlaceOrderCOD(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	productID := h.seedListedProduct(t, "2500")

	result, err := h.svc.PlaceOrder(ctx, h.orderInput(enums.PaymentMethodCOD, nil, productID))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	order := result.Order
	if order.Status != enums.OrderStatusPending || order.IsPaid {
		t.Fatalf("unexpected order state: %+v", order)
	}
	if !order.TotalAmount.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("unexpected total: %s", order.TotalAmount)
	}
	if result.Redirect != nil {
		t.Fatal("cash orders must not produce a gateway redirect")
	}

	// stone now reserved and off the storefront
	var product models.Product
	if err := h.db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if product.Status != enums.ProductStatusReserved || product.IsActive {
		t.Fatalf("product not reserved: %+v", product)
	}

	// single pending ledger entry
	var entry models.Transaction
	if err := h.db.First(&entry, "order_id = ?", order.ID).Error; err != nil {
		t.Fatalf("load ledger entry: %v", err)
	}
	if entry.Type != enums.TransactionTypeGemstonePurchase || entry.Status != enums.TransactionStatusPending {
		t.Fatalf("unexpected ledger entry: %+v", entry)
	}
}

func TestPlaceOrderWallet(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	userID := h.seedInvestor(t, decimal.NewFromInt(5000))
	productID := h.seedListedProduct(t, "2000")

	result, err := h.svc.PlaceOrder(ctx, h.orderInput(enums.PaymentMethodSoftWallet, &userID, productID))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	order := result.Order
	if order.Status != enums.OrderStatusPaid || !order.IsPaid || order.PaidAt == nil {
		t.Fatalf("wallet order should settle immediately: %+v", order)
	}

	var buyer models.User
	if err := h.db.First(&buyer, "id = ?", userID).Error; err != nil {
		t.Fatalf("load buyer: %v", err)
	}
	if !buyer.Balance.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("wallet not debited: %s", buyer.Balance)
	}

	var entry models.Transaction
	if err := h.db.First(&entry, "order_id = ?", order.ID).Error; err != nil {
		t.Fatalf("load ledger entry: %v", err)
	}
	if entry.Status != enums.TransactionStatusSuccess {
		t.Fatalf("ledger entry should be settled: %+v", entry)
	}
}

func TestPlaceOrderWalletInsufficientRollsBack(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	userID := h.seedInvestor(t, decimal.NewFromInt(100))
	productID := h.seedListedProduct(t, "2000")

	_, err := h.svc.PlaceOrder(ctx, h.orderInput(enums.PaymentMethodSoftWallet, &userID, productID))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	// the reservation must roll back with the payment
	var product models.Product
	if err := h.db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if product.Status != enums.ProductStatusForSale || !product.IsActive {
		t.Fatalf("reservation leaked: %+v", product)
	}

	var count int64
	h.db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Fatal("no order should survive the rollback")
	}
}

func TestPlaceOrderGuestWalletRejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	productID := h.seedListedProduct(t, "500")

	_, err := h.svc.PlaceOrder(context.Background(), h.orderInput(enums.PaymentMethodSoftWallet, nil, productID))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPlaceOrderPayFastRedirect(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	productID := h.seedListedProduct(t, "1250.50")

	result, err := h.svc.PlaceOrder(context.Background(), h.orderInput(enums.PaymentMethodPayFast, nil, productID))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if result.Redirect == nil {
		t.Fatal("gateway order should produce a redirect")
	}
	if result.Redirect.Form["m_payment_id"] != result.Order.OrderNumber {
		t.Fatalf("redirect not keyed to order: %+v", result.Redirect.Form)
	}
	if result.Redirect.Form["amount"] != "1250.50" {
		t.Fatalf("unexpected redirect amount: %s", result.Redirect.Form["amount"])
	}
}

func TestConfirmPayment(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	productID := h.seedListedProduct(t, "1000")

	result, err := h.svc.PlaceOrder(ctx, h.orderInput(enums.PaymentMethodPayFast, nil, productID))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	orderNumber := result.Order.OrderNumber

	t.Run("amount mismatch", func(t *testing.T) {
		err := h.svc.ConfirmPayment(ctx, ConfirmPaymentInput{
			OrderNumber: orderNumber,
			Amount:      decimal.NewFromInt(900),
			PaymentRef:  "pf_1",
		})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("settles within tolerance", func(t *testing.T) {
		err := h.svc.ConfirmPayment(ctx, ConfirmPaymentInput{
			OrderNumber: orderNumber,
			Amount:      decimal.RequireFromString("1000.01"),
			PaymentRef:  "pf_1",
		})
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}

		order, err := h.svc.FindByNumber(ctx, orderNumber)
		if err != nil {
			t.Fatalf("find order: %v", err)
		}
		if order.Status != enums.OrderStatusPaid || !order.IsPaid {
			t.Fatalf("order not settled: %+v", order)
		}
		if order.PaymentRef == nil || *order.PaymentRef != "pf_1" {
			t.Fatalf("payment ref not stored: %+v", order.PaymentRef)
		}
	})

	t.Run("replay is a no-op", func(t *testing.T) {
		err := h.svc.ConfirmPayment(ctx, ConfirmPaymentInput{
			OrderNumber: orderNumber,
			Amount:      decimal.NewFromInt(1000),
			PaymentRef:  "pf_2",
		})
		if err != nil {
			t.Fatalf("replay: %v", err)
		}

		order, _ := h.svc.FindByNumber(ctx, orderNumber)
		if order.PaymentRef == nil || *order.PaymentRef != "pf_1" {
			t.Fatalf("replay overwrote the original settlement: %+v", order.PaymentRef)
		}
	})
}

func TestUpdateStatusLifecycle(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	investorID := h.seedInvestor(t, decimal.NewFromInt(5000))
	productID := h.seedInvestorProduct(t, "1500", "20", "50")
	if _, err := h.investments.Open(ctx, investments.OpenInput{InvestorID: investorID, ProductID: productID}); err != nil {
		t.Fatalf("open investment: %v", err)
	}

	result, err := h.svc.PlaceOrder(ctx, h.orderInput(enums.PaymentMethodCOD, nil, productID))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	orderID := result.Order.ID

	if result.Order.Items[0].InvestmentID == nil {
		t.Fatal("line item should reference the backing investment")
	}

	// dispatch straight from pending is allowed for cash orders
	if _, err := h.svc.UpdateStatus(ctx, orderID, enums.OrderStatusDispatched); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	// cash cannot be re-dispatched
	_, err = h.svc.UpdateStatus(ctx, orderID, enums.OrderStatusDispatched)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	order, err := h.svc.UpdateStatus(ctx, orderID, enums.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if order.Status != enums.OrderStatusDelivered || !order.IsPaid || order.PaidAt == nil {
		t.Fatalf("delivery should settle a cash order: %+v", order)
	}

	// stone sold, position completed, investor credited
	var product models.Product
	h.db.First(&product, "id = ?", productID)
	if product.Status != enums.ProductStatusSold {
		t.Fatalf("product not sold: %+v", product)
	}

	var investment models.Investment
	h.db.First(&investment, "product_id = ?", productID)
	if investment.Status != enums.InvestmentStatusCompleted {
		t.Fatalf("position not completed: %+v", investment)
	}

	var investor models.User
	h.db.First(&investor, "id = ?", investorID)
	if !investor.TotalEarnings.Equal(decimal.NewFromInt(1650)) {
		t.Fatalf("investor not credited: %s", investor.TotalEarnings)
	}

	// terminal
	_, err = h.svc.UpdateStatus(ctx, orderID, enums.OrderStatusCancelled)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCancelReleasesByInvestment(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	investorID := h.seedInvestor(t, decimal.NewFromInt(5000))
	backedID := h.seedInvestorProduct(t, "1500", "20", "50")
	if _, err := h.investments.Open(ctx, investments.OpenInput{InvestorID: investorID, ProductID: backedID}); err != nil {
		t.Fatalf("open investment: %v", err)
	}
	plainID := h.seedListedProduct(t, "800")
	publicID := h.seedProduct(t, "600", "0", "0", enums.ProductStatusForSale, enums.ProductPortalPublic)

	result, err := h.svc.PlaceOrder(ctx, h.orderInput(enums.PaymentMethodCOD, nil, backedID, plainID, publicID))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if _, err := h.svc.UpdateStatus(ctx, result.Order.ID, enums.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// investor-backed stone returns to the storefront
	var backed models.Product
	h.db.First(&backed, "id = ?", backedID)
	if backed.Status != enums.ProductStatusForSale || !backed.IsActive {
		t.Fatalf("backed stone not relisted: %+v", backed)
	}
	if backed.Portal != enums.ProductPortalPublicByInvested {
		t.Fatalf("backed stone lost its portal: %+v", backed)
	}

	// every stone goes back to its pre-reservation listing
	var plain models.Product
	h.db.First(&plain, "id = ?", plainID)
	if plain.Status != enums.ProductStatusForSale || !plain.IsActive || plain.Portal != enums.ProductPortalPublicByInvested {
		t.Fatalf("plain stone not relisted: %+v", plain)
	}
	var public models.Product
	h.db.First(&public, "id = ?", publicID)
	if public.Status != enums.ProductStatusForSale || !public.IsActive || public.Portal != enums.ProductPortalPublic {
		t.Fatalf("public stone moved off its storefront: %+v", public)
	}

	var entry models.Transaction
	h.db.First(&entry, "order_id = ? AND type = ?", result.Order.ID, enums.TransactionTypeGemstonePurchase)
	if entry.Status != enums.TransactionStatusCancelled {
		t.Fatalf("ledger entry not cancelled: %+v", entry)
	}
}

func TestCancelReturnsUnwoundStoneToInvestors(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	investorID := h.seedInvestor(t, decimal.NewFromInt(5000))
	productID := h.seedInvestorProduct(t, "1500", "20", "50")
	investment, err := h.investments.Open(ctx, investments.OpenInput{InvestorID: investorID, ProductID: productID})
	if err != nil {
		t.Fatalf("open investment: %v", err)
	}

	result, err := h.svc.PlaceOrder(ctx, h.orderInput(enums.PaymentMethodCOD, nil, productID))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	// the position vanishes while the stone sits reserved
	h.db.Delete(&models.Investment{}, "id = ?", investment.ID)

	if _, err := h.svc.UpdateStatus(ctx, result.Order.ID, enums.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	var product models.Product
	h.db.First(&product, "id = ?", productID)
	if product.Status != enums.ProductStatusAvailable || product.Portal != enums.ProductPortalInvestor || !product.IsActive {
		t.Fatalf("stone without a backer should rejoin the investor catalog: %+v", product)
	}
}

func TestCancelRefundsWallet(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	userID := h.seedInvestor(t, decimal.NewFromInt(5000))
	productID := h.seedListedProduct(t, "2000")

	result, err := h.svc.PlaceOrder(ctx, h.orderInput(enums.PaymentMethodSoftWallet, &userID, productID))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if _, err := h.svc.UpdateStatus(ctx, result.Order.ID, enums.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	var buyer models.User
	h.db.First(&buyer, "id = ?", userID)
	if !buyer.Balance.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("wallet not refunded: %s", buyer.Balance)
	}

	var topup models.Transaction
	if err := h.db.First(&topup, "order_id = ? AND type = ?", result.Order.ID, enums.TransactionTypeBalanceTopup).Error; err != nil {
		t.Fatalf("load refund entry: %v", err)
	}
	if topup.Status != enums.TransactionStatusSuccess {
		t.Fatalf("unexpected refund entry: %+v", topup)
	}
}

func TestExpireAbandoned(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	staleID := h.seedListedProduct(t, "1000")
	freshID := h.seedListedProduct(t, "1000")

	stale, err := h.svc.PlaceOrder(ctx, h.orderInput(enums.PaymentMethodPayFast, nil, staleID))
	if err != nil {
		t.Fatalf("place stale order: %v", err)
	}

	fresh, err := h.svc.PlaceOrder(ctx, h.orderInput(enums.PaymentMethodPayFast, nil, freshID))
	if err != nil {
		t.Fatalf("place fresh order: %v", err)
	}
	// age the first order past the abandon window
	h.db.Model(&models.Order{}).
		Where("id = ?", stale.Order.ID).
		Update("created_at", time.Now().UTC().Add(-90*time.Minute))

	swept, err := h.svc.ExpireAbandoned(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept order, got %d", swept)
	}

	staleOrder, _ := h.svc.Find(ctx, stale.Order.ID)
	if staleOrder.Status != enums.OrderStatusCancelled {
		t.Fatalf("stale order not cancelled: %+v", staleOrder)
	}
	freshOrder, _ := h.svc.Find(ctx, fresh.Order.ID)
	if freshOrder.Status != enums.OrderStatusPending {
		t.Fatalf("fresh order should survive: %+v", freshOrder)
	}

	var product models.Product
	h.db.First(&product, "id = ?", staleID)
	if product.Status != enums.ProductStatusForSale || !product.IsActive {
		t.Fatalf("stale order's stone not released: %+v", product)
	}
}

func TestCancelPendingByNumber(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	productID := h.seedListedProduct(t, "1000")

	result, err := h.svc.PlaceOrder(ctx, h.orderInput(enums.PaymentMethodPayFast, nil, productID))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if err := h.svc.CancelPendingByNumber(ctx, result.Order.OrderNumber); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// a paid order cannot be abandoned this way
	err = h.svc.CancelPendingByNumber(ctx, result.Order.OrderNumber)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

type harness struct {
	db          *gorm.DB
	svc         Service
	investments investments.Service
}

func (h *harness) orderInput(method enums.PaymentMethod, userID *uuid.UUID, productIDs ...uuid.UUID) PlaceOrderInput {
	return PlaceOrderInput{
		UserID:          userID,
		CustomerName:    "Ayesha Khan",
		CustomerPhone:   "+923001234567",
		ShippingAddress: "14-B Gulberg III",
		ShippingCity:    "Lahore",
		PaymentMethod:   method,
		ProductIDs:      productIDs,
	}
}

func (h *harness) seedInvestor(t *testing.T, balance decimal.Decimal) uuid.UUID {
	t.Helper()
	number := "IVR-" + uuid.NewString()[:8]
	user := models.User{
		Email:          uuid.NewString() + "@example.com",
		PasswordHash:   "x",
		FirstName:      "Test",
		IsInvestor:     true,
		InvestorNumber: &number,
		InvestorStatus: enums.InvestorStatusApproved,
		Balance:        balance,
	}
	if err := h.db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user.ID
}

// seedListedProduct creates a stone already on the public storefront.
func (h *harness) seedListedProduct(t *testing.T, price string) uuid.UUID {
	t.Helper()
	return h.seedProduct(t, price, "0", "0", enums.ProductStatusForSale, enums.ProductPortalPublicByInvested)
}

// seedInvestorProduct creates a stone waiting in the investor catalog.
func (h *harness) seedInvestorProduct(t *testing.T, price, margin, sharing string) uuid.UUID {
	t.Helper()
	return h.seedProduct(t, price, margin, sharing, enums.ProductStatusAvailable, enums.ProductPortalInvestor)
}

func (h *harness) seedProduct(t *testing.T, price, margin, sharing string, status enums.ProductStatus, portal enums.ProductPortal) uuid.UUID {
	t.Helper()
	product := models.Product{
		ProductNumber:        "GEM-" + uuid.NewString()[:8],
		Name:                 "Panjshir Emerald",
		Price:                decimal.RequireFromString(price),
		ProfitMarginPercent:  decimal.RequireFromString(margin),
		ProfitSharingPercent: decimal.RequireFromString(sharing),
		Status:               status,
		Portal:               portal,
		IsActive:             true,
	}
	if err := h.db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dsn := "file:settlement_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.Investment{},
		&models.Order{}, &models.OrderItem{}, &models.Transaction{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	lock, err := inventory.NewLock(db)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	accountsSvc, err := accounts.NewService(accounts.NewRepository(db))
	if err != nil {
		t.Fatalf("new accounts service: %v", err)
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db))
	if err != nil {
		t.Fatalf("new ledger service: %v", err)
	}
	investmentsSvc, err := investments.NewService(
		investments.NewRepository(db), gormTxRunner{db: db}, lock, accountsSvc, ledgerSvc, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("new investments service: %v", err)
	}

	gateway := config.PayFastConfig{
		MerchantID:  "10000100",
		MerchantKey: "46f0cd694581a",
		ProcessURL:  "https://sandbox.payfast.co.za/eng/process",
		ReturnURL:   "https://shop.example/payment-success",
		CancelURL:   "https://shop.example/payment-cancel",
		NotifyURL:   "https://api.example/payfast-itn",
	}
	svc, err := NewService(
		NewRepository(db), gormTxRunner{db: db}, lock,
		investmentsSvc, accountsSvc, ledgerSvc, gateway, time.Hour)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &harness{db: db, svc: svc, investments: investmentsSvc}
}
