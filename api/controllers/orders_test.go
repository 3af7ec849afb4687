package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lromero/storefront-backend/api/middleware"
	"github.com/lromero/storefront-backend/internal/identity"
	"github.com/lromero/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lromero/storefront-backend/pkg/errors"
)

type stubOrdersService struct {
	order  *models.Order
	orders []models.Order
	err    error
}

func (s *stubOrdersService) Get(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrdersService) History(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	return s.orders, s.err
}

func TestOrderHistorySuccess(t *testing.T) {
	order := confirmedOrder()
	handler := OrderHistory(&stubOrdersService{orders: []models.Order{*order}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), identity.Customer(order.CustomerID)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data []orderView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 {
		t.Fatalf("expected 1 order got %d", len(envelope.Data))
	}
	if envelope.Data[0].OrderNumber != 7 {
		t.Fatalf("unexpected order number %d", envelope.Data[0].OrderNumber)
	}
}

func TestOrderHistoryRequiresCustomer(t *testing.T) {
	handler := OrderHistory(&stubOrdersService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), identity.Anonymous("203.0.113.7")))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestOrderDetailNotFound(t *testing.T) {
	handler := OrderDetail(&stubOrdersService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/x", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), identity.Customer(uuid.New())))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderID", uuid.NewString())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestOrderDetailInvalidID(t *testing.T) {
	handler := OrderDetail(&stubOrdersService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/nope", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), identity.Customer(uuid.New())))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderID", "nope")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
