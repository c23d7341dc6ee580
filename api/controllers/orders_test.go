package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gemvault/gemvault-backend/api/middleware"
	"github.com/gemvault/gemvault-backend/internal/settlement"
	"github.com/gemvault/gemvault-backend/pkg/db/models"
	"github.com/gemvault/gemvault-backend/pkg/enums"
	pkgerrors "github.com/gemvault/gemvault-backend/pkg/errors"
	"github.com/gemvault/gemvault-backend/pkg/types"
)

type fakeSettlement struct {
	settlement.Service
	placeOrderFn   func(ctx context.Context, input settlement.PlaceOrderInput) (*settlement.PlaceOrderResult, error)
	updateStatusFn func(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error)
}

func (f *fakeSettlement) PlaceOrder(ctx context.Context, input settlement.PlaceOrderInput) (*settlement.PlaceOrderResult, error) {
	return f.placeOrderFn(ctx, input)
}

func (f *fakeSettlement) UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	return f.updateStatusFn(ctx, orderID, next)
}

func TestPlaceOrder(t *testing.T) {
	productID := uuid.New()
	userID := uuid.New()

	var got settlement.PlaceOrderInput
	svc := &fakeSettlement{
		placeOrderFn: func(_ context.Context, input settlement.PlaceOrderInput) (*settlement.PlaceOrderResult, error) {
			got = input
			return &settlement.PlaceOrderResult{Order: &models.Order{OrderNumber: "ORD-1"}}, nil
		},
	}

	body := `{
		"customer_name": "Amina Khan",
		"customer_phone": "+92 300 0000000",
		"shipping_address": "12 Zamzama Lane",
		"shipping_city": "Karachi",
		"payment_method": "COD",
		"product_ids": ["` + productID.String() + `"]
	}`

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	resp := httptest.NewRecorder()
	PlaceOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.UserID == nil || *got.UserID != userID {
		t.Fatalf("buyer not taken from context: %+v", got.UserID)
	}
	if len(got.ProductIDs) != 1 || got.ProductIDs[0] != productID {
		t.Fatalf("unexpected product ids %v", got.ProductIDs)
	}
	if got.PaymentMethod != enums.PaymentMethodCOD {
		t.Fatalf("unexpected method %s", got.PaymentMethod)
	}
}

func TestPlaceOrderRejectsUnknownFields(t *testing.T) {
	svc := &fakeSettlement{
		placeOrderFn: func(_ context.Context, _ settlement.PlaceOrderInput) (*settlement.PlaceOrderResult, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"surprise": true}`))
	resp := httptest.NewRecorder()
	PlaceOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminUpdateOrderStatusMapsConflict(t *testing.T) {
	orderID := uuid.New()
	svc := &fakeSettlement{
		updateStatusFn: func(_ context.Context, id uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
			if id != orderID || next != enums.OrderStatusDelivered {
				t.Fatalf("unexpected call %s %s", id, next)
			}
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot move from PENDING to DELIVERED")
		},
	}

	router := chi.NewRouter()
	router.Patch("/orders/{orderId}/status", AdminUpdateOrderStatus(svc, nil))

	req := httptest.NewRequest(http.MethodPatch, "/orders/"+orderID.String()+"/status", strings.NewReader(`{"status": "DELIVERED"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
}
