package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gemvault/gemvault-backend/api/middleware"
	"github.com/gemvault/gemvault-backend/api/responses"
	"github.com/gemvault/gemvault-backend/api/validators"
	"github.com/gemvault/gemvault-backend/internal/settlement"
	"github.com/gemvault/gemvault-backend/pkg/enums"
	pkgerrors "github.com/gemvault/gemvault-backend/pkg/errors"
	"github.com/gemvault/gemvault-backend/pkg/logger"
	"github.com/gemvault/gemvault-backend/pkg/pagination"
)

type placeOrderRequest struct {
	CustomerName    string   `json:"customer_name" validate:"required"`
	CustomerPhone   string   `json:"customer_phone" validate:"required"`
	ShippingAddress string   `json:"shipping_address" validate:"required"`
	ShippingCity    string   `json:"shipping_city" validate:"required"`
	PaymentMethod   string   `json:"payment_method" validate:"required,oneof=COD SOFT_WALLET PAYFAST"`
	ProductIDs      []string `json:"product_ids" validate:"required,min=1,dive,uuid"`
}

// PlaceOrder accepts guest and signed-in checkouts. Wallet payment requires a
// signed-in buyer; the service enforces that.
func PlaceOrder(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		var body placeOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		productIDs := make([]uuid.UUID, 0, len(body.ProductIDs))
		for _, raw := range body.ProductIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
				return
			}
			productIDs = append(productIDs, id)
		}

		input := settlement.PlaceOrderInput{
			CustomerName:    body.CustomerName,
			CustomerPhone:   body.CustomerPhone,
			ShippingAddress: body.ShippingAddress,
			ShippingCity:    body.ShippingCity,
			PaymentMethod:   method,
			ProductIDs:      productIDs,
		}
		if userID := middleware.UserIDFromContext(r.Context()); userID != uuid.Nil {
			input.UserID = &userID
		}

		result, err := svc.PlaceOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := map[string]any{"order": result.Order}
		if result.Redirect != nil {
			payload["payment_redirect"] = result.Redirect
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payload)
	}
}

// OrderDetail returns one order by its public number.
func OrderDetail(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		if orderNumber == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order number is required"))
			return
		}

		order, err := svc.FindByNumber(r.Context(), orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// MyOrders lists the signed-in buyer's orders.
func MyOrders(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.ListByUser(r.Context(), middleware.UserIDFromContext(r.Context()), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, orders, pagination.MetaFor(page, len(orders)))
	}
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminUpdateOrderStatus moves an order along its lifecycle.
func AdminUpdateOrderStatus(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		orderID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "orderId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		var body orderStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		next, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orderID, next)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// PaymentCancelled handles the buyer landing back from an abandoned gateway
// page; the pending order is released immediately instead of waiting for the
// sweep.
func PaymentCancelled(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		if orderNumber == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order number is required"))
			return
		}

		if err := svc.CancelPendingByNumber(r.Context(), orderNumber); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"order_number": orderNumber, "status": "cancelled"})
	}
}
