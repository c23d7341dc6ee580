// Package payfastwebhook applies PayFast Instant Transaction Notifications
// to orders. Verification happens before anything is touched; an unverifiable
// notification changes nothing.
package payfastwebhook

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/gemvault/gemvault-backend/internal/settlement"
	"github.com/gemvault/gemvault-backend/pkg/config"
	pkgerrors "github.com/gemvault/gemvault-backend/pkg/errors"
	"github.com/gemvault/gemvault-backend/pkg/payfast"
)

// gateway payment_status values
const (
	statusComplete  = "COMPLETE"
	statusCancelled = "CANCELLED"
	statusFailed    = "FAILED"
)

// Service verifies and settles gateway notifications.
type Service struct {
	settlement settlement.Service
	gateway    config.PayFastConfig
}

// NewService builds the webhook service.
func NewService(settlementSvc settlement.Service, gateway config.PayFastConfig) (*Service, error) {
	if settlementSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement service required")
	}
	return &Service{settlement: settlementSvc, gateway: gateway}, nil
}

// HandleITN processes one raw notification body. Replays of settled payments
// and non-final statuses are no-ops; the abandoned-order sweep owns releasing
// inventory for payments that never complete.
func (s *Service) HandleITN(ctx context.Context, rawBody []byte) error {
	fields, err := payfast.ParseITNBody(rawBody)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed notification body")
	}
	if len(fields) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "empty notification body")
	}

	signature := payfast.Lookup(fields, "signature")
	if !payfast.VerifySignature(fields, s.gateway.Passphrase, signature) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "notification signature mismatch")
	}
	if merchantID := payfast.Lookup(fields, "merchant_id"); merchantID != s.gateway.MerchantID {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "notification for unknown merchant")
	}

	switch payfast.Lookup(fields, "payment_status") {
	case statusComplete:
	case statusCancelled, statusFailed:
		return nil
	default:
		return nil
	}

	orderNumber := payfast.Lookup(fields, "m_payment_id")
	if orderNumber == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification missing payment id")
	}
	amount, err := decimal.NewFromString(payfast.Lookup(fields, "amount_gross"))
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification has no parseable amount")
	}

	err = s.settlement.ConfirmPayment(ctx, settlement.ConfirmPaymentInput{
		OrderNumber: orderNumber,
		Amount:      amount,
		PaymentRef:  payfast.Lookup(fields, "pf_payment_id"),
	})
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
		// unknown payment id: acknowledge so the gateway stops resending
		return nil
	}
	return err
}
