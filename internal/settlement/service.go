// Package settlement turns checkout requests into orders and walks each order
// through its lifecycle: payment, dispatch, delivery, cancellation. All money
// and inventory effects of an order happen here, inside one transaction per
// transition.
package settlement

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/gemvault/gemvault-backend/internal/accounts"
	"github.com/gemvault/gemvault-backend/internal/inventory"
	"github.com/gemvault/gemvault-backend/internal/investments"
	"github.com/gemvault/gemvault-backend/internal/ledger"
	"github.com/gemvault/gemvault-backend/pkg/config"
	"github.com/gemvault/gemvault-backend/pkg/db/models"
	"github.com/gemvault/gemvault-backend/pkg/enums"
	"github.com/gemvault/gemvault-backend/pkg/errors"
	"github.com/gemvault/gemvault-backend/pkg/pagination"
	"github.com/gemvault/gemvault-backend/pkg/payfast"
	"github.com/gemvault/gemvault-backend/pkg/refnum"
)

// amountTolerance is the largest gateway/order amount mismatch accepted when
// settling a payment notification.
var amountTolerance = decimal.RequireFromString("0.01")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the order settlement operations.
type Service interface {
	// PlaceOrder reserves every requested gemstone and creates the order.
	// Wallet orders settle immediately; gateway orders return a signed
	// redirect for the buyer to complete.
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error)

	// ConfirmPayment settles a pending gateway order. Calling it again for an
	// already-paid order is a no-op.
	ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) error

	// UpdateStatus moves an order along its lifecycle, applying the side
	// effects of the target status.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error)

	// CancelPendingByNumber cancels a pending gateway order after the buyer
	// backed out at the payment page.
	CancelPendingByNumber(ctx context.Context, orderNumber string) error

	// ExpireAbandoned cancels pending gateway orders older than the abandon
	// window and reports how many were swept.
	ExpireAbandoned(ctx context.Context) (int, error)

	Find(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Order, error)
}

// PlaceOrderInput carries a checkout request. UserID is nil for guests.
type PlaceOrderInput struct {
	UserID          *uuid.UUID
	CustomerName    string
	CustomerPhone   string
	ShippingAddress string
	ShippingCity    string
	PaymentMethod   enums.PaymentMethod
	ProductIDs      []uuid.UUID
}

// PlaceOrderResult is the created order plus, for gateway payments, the
// redirect the buyer must follow.
type PlaceOrderResult struct {
	Order    *models.Order
	Redirect *payfast.RedirectPayload
}

// ConfirmPaymentInput identifies a settled gateway payment.
type ConfirmPaymentInput struct {
	OrderNumber string
	Amount      decimal.Decimal
	PaymentRef  string
}

type service struct {
	repo        Repository
	tx          txRunner
	lock        inventory.Lock
	investments investments.Service
	accounts    accounts.Service
	ledger      ledger.Service
	gateway     config.PayFastConfig
	abandonTTL  time.Duration
	now         func() time.Time
}

// NewService builds a settlement service with the required dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	lock inventory.Lock,
	investmentsSvc investments.Service,
	accountsSvc accounts.Service,
	ledgerSvc ledger.Service,
	gateway config.PayFastConfig,
	abandonTTL time.Duration,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if lock == nil {
		return nil, fmt.Errorf("inventory lock required")
	}
	if investmentsSvc == nil {
		return nil, fmt.Errorf("investments service required")
	}
	if accountsSvc == nil {
		return nil, fmt.Errorf("accounts service required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		lock:        lock,
		investments: investmentsSvc,
		accounts:    accountsSvc,
		ledger:      ledgerSvc,
		gateway:     gateway,
		abandonTTL:  abandonTTL,
		now:         time.Now,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	if err := validatePlaceOrder(input); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		lock := s.lock.WithTx(tx)

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(input.ProductIDs))
		for _, productID := range input.ProductIDs {
			product, err := lock.AcquireForOrder(ctx, productID)
			if err != nil {
				return err
			}

			item := models.OrderItem{
				ProductID: product.ID,
				Price:     product.Price,
			}
			position, err := s.investments.ActivePosition(ctx, tx, product.ID)
			if err != nil {
				return err
			}
			if position != nil {
				investmentID := position.ID
				item.InvestmentID = &investmentID
			}
			items = append(items, item)
			total = total.Add(product.Price)
		}

		order = &models.Order{
			OrderNumber:     refnum.New(refnum.PrefixOrder),
			UserID:          input.UserID,
			CustomerName:    input.CustomerName,
			CustomerPhone:   input.CustomerPhone,
			ShippingAddress: input.ShippingAddress,
			ShippingCity:    input.ShippingCity,
			TotalAmount:     total,
			Status:          enums.OrderStatusPending,
			PaymentMethod:   input.PaymentMethod,
			Items:           items,
		}
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "failed to create order")
		}

		metadata, _ := json.Marshal(map[string]any{
			"order_number": order.OrderNumber,
			"item_count":   len(items),
		})
		if _, err := s.ledger.WithTx(tx).RecordPurchase(ctx, ledger.RecordPurchaseInput{
			OrderID:  order.ID,
			UserID:   input.UserID,
			Source:   input.PaymentMethod,
			Amount:   total,
			Metadata: metadata,
		}); err != nil {
			return err
		}

		if input.PaymentMethod == enums.PaymentMethodSoftWallet {
			return s.settleWithWallet(ctx, tx, order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &PlaceOrderResult{Order: order}
	if input.PaymentMethod == enums.PaymentMethodPayFast {
		redirect := payfast.BuildRedirect(
			s.gateway,
			order.OrderNumber,
			order.CustomerName,
			fmt.Sprintf("Gemstone order %s", order.OrderNumber),
			order.TotalAmount,
		)
		result.Redirect = &redirect
	}
	return result, nil
}

// settleWithWallet debits the buyer inside the placement transaction so the
// order is paid the moment it exists.
func (s *service) settleWithWallet(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if _, err := s.accounts.WithTx(tx).Debit(ctx, *order.UserID, order.TotalAmount); err != nil {
		return err
	}

	paidAt := s.now().UTC()
	if err := s.repo.WithTx(tx).Update(ctx, order.ID, map[string]any{
		"status":  enums.OrderStatusPaid,
		"is_paid": true,
		"paid_at": paidAt,
	}); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "failed to settle order")
	}
	if err := s.ledger.WithTx(tx).MarkOrderOutcome(ctx, order.ID, enums.TransactionStatusSuccess, nil); err != nil {
		return err
	}

	order.Status = enums.OrderStatusPaid
	order.IsPaid = true
	order.PaidAt = &paidAt
	return nil
}

func (s *service) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) error {
	if input.OrderNumber == "" {
		return errors.New(errors.CodeValidation, "order number required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByNumber(ctx, input.OrderNumber)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.CodeNotFound, "order not found")
			}
			return errors.Wrap(errors.CodeInternal, err, "failed to load order")
		}

		// replayed notification for an already-settled order
		if order.IsPaid {
			return nil
		}
		if err := ensureTransition(order.Status, enums.OrderStatusPaid); err != nil {
			return err
		}
		if input.Amount.Sub(order.TotalAmount).Abs().GreaterThan(amountTolerance) {
			return errors.New(errors.CodeValidation, "payment amount does not match order total").
				WithDetails(map[string]any{
					"expected": order.TotalAmount.StringFixed(2),
					"received": input.Amount.StringFixed(2),
				})
		}

		paidAt := s.now().UTC()
		updates := map[string]any{
			"status":  enums.OrderStatusPaid,
			"is_paid": true,
			"paid_at": paidAt,
		}
		if input.PaymentRef != "" {
			updates["payment_ref"] = input.PaymentRef
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "failed to settle order")
		}

		var ref *string
		if input.PaymentRef != "" {
			ref = &input.PaymentRef
		}
		return s.ledger.WithTx(tx).MarkOrderOutcome(ctx, order.ID, enums.TransactionStatusSuccess, ref)
	})
}

func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "order id required")
	}
	if !next.IsValid() {
		return nil, errors.New(errors.CodeValidation, "invalid order status")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.CodeNotFound, "order not found")
			}
			return errors.Wrap(errors.CodeInternal, err, "failed to load order")
		}
		if err := ensureTransition(order.Status, next); err != nil {
			return err
		}

		switch next {
		case enums.OrderStatusPaid:
			return s.markPaid(ctx, tx, order)
		case enums.OrderStatusDispatched:
			return repo.Update(ctx, order.ID, map[string]any{
				"status":        enums.OrderStatusDispatched,
				"dispatched_at": s.now().UTC(),
			})
		case enums.OrderStatusDelivered:
			return s.deliver(ctx, tx, order)
		case enums.OrderStatusCancelled:
			return s.cancel(ctx, tx, order)
		default:
			return errors.New(errors.CodeValidation, "unsupported status change")
		}
	})
	if err != nil {
		return nil, err
	}
	return s.Find(ctx, orderID)
}

func (s *service) markPaid(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if err := s.repo.WithTx(tx).Update(ctx, order.ID, map[string]any{
		"status":  enums.OrderStatusPaid,
		"is_paid": true,
		"paid_at": s.now().UTC(),
	}); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "failed to mark order paid")
	}
	return s.ledger.WithTx(tx).MarkOrderOutcome(ctx, order.ID, enums.TransactionStatusSuccess, nil)
}

// deliver closes the sale: stones become Sold, the investor positions behind
// them complete, and an unpaid cash-on-delivery order settles.
func (s *service) deliver(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	lock := s.lock.WithTx(tx)
	productIDs := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		if err := lock.MarkSold(ctx, item.ProductID); err != nil {
			return err
		}
		productIDs = append(productIDs, item.ProductID)
	}

	deliveredAt := s.now().UTC()
	if err := s.investments.CloseForProducts(ctx, tx, productIDs, deliveredAt); err != nil {
		return err
	}

	updates := map[string]any{
		"status":       enums.OrderStatusDelivered,
		"delivered_at": deliveredAt,
	}
	if !order.IsPaid {
		updates["is_paid"] = true
		updates["paid_at"] = deliveredAt
		if err := s.ledger.WithTx(tx).MarkOrderOutcome(ctx, order.ID, enums.TransactionStatusSuccess, nil); err != nil {
			return err
		}
	}
	if err := s.repo.WithTx(tx).Update(ctx, order.ID, updates); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "failed to mark order delivered")
	}
	return nil
}

// cancel releases every reserved stone and refunds wallet payments. Stones go
// back on sale in their pre-reservation listing; only a stone whose investor
// position disappeared while it sat reserved drops to the investor catalog.
func (s *service) cancel(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	lock := s.lock.WithTx(tx)
	for _, item := range order.Items {
		if item.InvestmentID != nil {
			position, err := s.investments.ActivePosition(ctx, tx, item.ProductID)
			if err != nil {
				return err
			}
			if position == nil {
				if err := lock.ReleaseToInvestors(ctx, item.ProductID); err != nil {
					return err
				}
				continue
			}
		}
		if err := lock.ReleaseToMarket(ctx, item.ProductID); err != nil {
			return err
		}
	}

	if err := s.ledger.WithTx(tx).MarkOrderOutcome(ctx, order.ID, enums.TransactionStatusCancelled, nil); err != nil {
		return err
	}

	if order.IsPaid && order.PaymentMethod == enums.PaymentMethodSoftWallet && order.UserID != nil {
		move, err := s.accounts.WithTx(tx).Credit(ctx, *order.UserID, order.TotalAmount)
		if err != nil {
			return err
		}
		orderID := order.ID
		metadata, _ := json.Marshal(map[string]string{
			"order_number": order.OrderNumber,
			"reason":       "order cancelled",
		})
		if _, err := s.ledger.WithTx(tx).RecordWalletCredit(ctx, ledger.RecordWalletCreditInput{
			UserID:        *order.UserID,
			OrderID:       &orderID,
			Amount:        order.TotalAmount,
			BalanceBefore: move.Before,
			BalanceAfter:  move.After,
			Metadata:      metadata,
		}); err != nil {
			return err
		}
	}

	if err := s.repo.WithTx(tx).Update(ctx, order.ID, map[string]any{
		"status":       enums.OrderStatusCancelled,
		"cancelled_at": s.now().UTC(),
	}); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "failed to cancel order")
	}
	return nil
}

func (s *service) CancelPendingByNumber(ctx context.Context, orderNumber string) error {
	if orderNumber == "" {
		return errors.New(errors.CodeValidation, "order number required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindByNumber(ctx, orderNumber)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.CodeNotFound, "order not found")
			}
			return errors.Wrap(errors.CodeInternal, err, "failed to load order")
		}
		if order.Status != enums.OrderStatusPending {
			return errors.New(errors.CodeStateConflict, "only pending orders can be abandoned")
		}
		return s.cancel(ctx, tx, order)
	})
}

func (s *service) ExpireAbandoned(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.abandonTTL)
	orders, err := s.repo.ListAbandoned(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(errors.CodeInternal, err, "failed to list abandoned orders")
	}

	swept := 0
	var sweepErr error
	for _, order := range orders {
		order := order
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			// re-read inside the transaction; a payment may have landed since
			current, err := s.repo.WithTx(tx).FindByID(ctx, order.ID)
			if err != nil {
				return err
			}
			if current.Status != enums.OrderStatusPending {
				return nil
			}
			if err := s.cancel(ctx, tx, current); err != nil {
				return err
			}
			swept++
			return nil
		})
		// one stuck order must not block the rest of the sweep
		sweepErr = multierr.Append(sweepErr, err)
	}
	return swept, sweepErr
}

func (s *service) Find(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "order not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to load order")
	}
	return order, nil
}

func (s *service) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "order not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to load order")
	}
	return order, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id required")
	}
	orders, err := s.repo.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "failed to list orders")
	}
	return orders, nil
}

func validatePlaceOrder(input PlaceOrderInput) error {
	if len(input.ProductIDs) == 0 {
		return errors.New(errors.CodeValidation, "order must contain at least one product")
	}
	seen := make(map[uuid.UUID]struct{}, len(input.ProductIDs))
	for _, id := range input.ProductIDs {
		if id == uuid.Nil {
			return errors.New(errors.CodeValidation, "product id required")
		}
		if _, dup := seen[id]; dup {
			return errors.New(errors.CodeValidation, "duplicate product in order")
		}
		seen[id] = struct{}{}
	}
	if !input.PaymentMethod.IsValid() {
		return errors.New(errors.CodeValidation, "invalid payment method")
	}
	if input.PaymentMethod == enums.PaymentMethodSoftWallet && input.UserID == nil {
		return errors.New(errors.CodeValidation, "wallet payment requires a signed-in account")
	}
	if input.CustomerName == "" || input.CustomerPhone == "" {
		return errors.New(errors.CodeValidation, "customer name and phone are required")
	}
	if input.ShippingAddress == "" || input.ShippingCity == "" {
		return errors.New(errors.CodeValidation, "shipping address and city are required")
	}
	return nil
}
