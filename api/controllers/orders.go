package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lromero/storefront-backend/api/middleware"
	"github.com/lromero/storefront-backend/api/responses"
	ordersvc "github.com/lromero/storefront-backend/internal/orders"
	"github.com/lromero/storefront-backend/pkg/db/models"
	"github.com/lromero/storefront-backend/pkg/enums"
	pkgerrors "github.com/lromero/storefront-backend/pkg/errors"
	"github.com/lromero/storefront-backend/pkg/logger"
)

// OrderHistory lists the authenticated customer's orders, newest first.
func OrderHistory(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		customerID, err := customerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.History(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]orderView, 0, len(orders))
		for i := range orders {
			views = append(views, newOrderView(&orders[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

// OrderDetail returns one of the authenticated customer's orders.
func OrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		customerID, err := customerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.Get(r.Context(), customerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderView(order))
	}
}

func customerIDFromRequest(r *http.Request) (uuid.UUID, error) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity not resolved")
	}
	customerID, ok := ident.CustomerID()
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	return customerID, nil
}

func parsePaymentMethod(raw string) (enums.PaymentMethod, error) {
	method, err := enums.ParsePaymentMethod(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	return method, nil
}

func newOrderView(order *models.Order) orderView {
	lines := make([]orderLineView, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLineView{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   line.LineTotal,
		})
	}
	return orderView{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		InvoiceNumber: order.InvoiceNumber,
		Status:        string(order.Status),
		Currency:      order.Currency,
		Subtotal:      order.Subtotal,
		Tax:           order.Tax,
		Shipping:      order.Shipping,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: string(order.PaymentMethod),
		Lines:         lines,
		CreatedAt:     order.CreatedAt,
	}
}
