package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lromero/storefront-backend/api/middleware"
	checkoutsvc "github.com/lromero/storefront-backend/internal/checkout"
	"github.com/lromero/storefront-backend/internal/identity"
	"github.com/lromero/storefront-backend/pkg/db/models"
	"github.com/lromero/storefront-backend/pkg/enums"
	pkgerrors "github.com/lromero/storefront-backend/pkg/errors"
)

type stubCheckoutService struct {
	result  *checkoutsvc.Result
	err     error
	lastReq checkoutsvc.Request
}

func (s *stubCheckoutService) Checkout(ctx context.Context, ident identity.Identity, req checkoutsvc.Request) (*checkoutsvc.Result, error) {
	s.lastReq = req
	return s.result, s.err
}

func confirmedOrder() *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		OrderNumber:   7,
		InvoiceNumber: "INV-20260831-7",
		Status:        enums.OrderStatusConfirmed,
		Currency:      "USD",
		Subtotal:      decimal.RequireFromString("20.00"),
		Tax:           decimal.RequireFromString("1.65"),
		Shipping:      decimal.RequireFromString("5.00"),
		TotalAmount:   decimal.RequireFromString("26.65"),
		PaymentMethod: enums.PaymentMethodCard,
		Lines: []models.OrderLine{{
			ProductID:   uuid.New(),
			ProductName: "Pour Over Kettle",
			Quantity:    2,
			UnitPrice:   decimal.RequireFromString("10.00"),
			LineTotal:   decimal.RequireFromString("20.00"),
		}},
	}
}

func TestCheckoutSuccess(t *testing.T) {
	service := &stubCheckoutService{result: &checkoutsvc.Result{Order: confirmedOrder(), CartCleared: true}}
	handler := Checkout(service, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"payment_method":"card"}`))
	req = req.WithContext(middleware.WithIdentity(req.Context(), identity.Customer(uuid.New())))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if service.lastReq.Method != enums.PaymentMethodCard {
		t.Fatalf("unexpected method %q", service.lastReq.Method)
	}

	var envelope struct {
		Data checkoutView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Order.InvoiceNumber != "INV-20260831-7" {
		t.Fatalf("unexpected invoice %q", envelope.Data.Order.InvoiceNumber)
	}
	if !envelope.Data.CartCleared {
		t.Fatal("expected cart cleared flag")
	}
	if len(envelope.Data.Order.Lines) != 1 {
		t.Fatalf("expected 1 line got %d", len(envelope.Data.Order.Lines))
	}
}

func TestCheckoutRejectsUnknownMethod(t *testing.T) {
	handler := Checkout(&stubCheckoutService{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"payment_method":"crypto"}`))
	req = req.WithContext(middleware.WithIdentity(req.Context(), identity.Customer(uuid.New())))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutPaymentDeclined(t *testing.T) {
	service := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodePaymentFailed, "payment declined")}
	handler := Checkout(service, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"payment_method":"card"}`))
	req = req.WithContext(middleware.WithIdentity(req.Context(), identity.Customer(uuid.New())))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 got %d", resp.Code)
	}
}

func TestCheckoutRequiresIdentity(t *testing.T) {
	handler := Checkout(&stubCheckoutService{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"payment_method":"card"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
