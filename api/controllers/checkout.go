package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lromero/storefront-backend/api/middleware"
	"github.com/lromero/storefront-backend/api/responses"
	"github.com/lromero/storefront-backend/api/validators"
	checkoutsvc "github.com/lromero/storefront-backend/internal/checkout"
	pkgerrors "github.com/lromero/storefront-backend/pkg/errors"
	"github.com/lromero/storefront-backend/pkg/logger"
	"github.com/lromero/storefront-backend/pkg/metrics"
)

type checkoutRequest struct {
	PaymentMethod  string `json:"payment_method" validate:"required"`
	IdempotencyKey string `json:"idempotency_key"`
}

type orderLineView struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type orderView struct {
	ID            uuid.UUID       `json:"id"`
	OrderNumber   int64           `json:"order_number"`
	InvoiceNumber string          `json:"invoice_number"`
	Status        string          `json:"status"`
	Currency      string          `json:"currency"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Shipping      decimal.Decimal `json:"shipping"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	Lines         []orderLineView `json:"lines"`
	CreatedAt     time.Time       `json:"created_at"`
}

type checkoutView struct {
	Order       orderView `json:"order"`
	CartCleared bool      `json:"cart_cleared"`
}

// Checkout turns the authenticated customer's cart into a confirmed order.
func Checkout(svc checkoutsvc.Service, checkoutMetrics *metrics.CheckoutMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		ident, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity not resolved"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := parsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), ident, checkoutsvc.Request{
			Method:         method,
			IdempotencyKey: payload.IdempotencyKey,
		})
		if err != nil {
			if pkgerrors.CodeOf(err) == pkgerrors.CodePaymentFailed {
				checkoutMetrics.IncPaymentFailure()
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkoutMetrics.IncOrderCreated()

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutView{
			Order:       newOrderView(result.Order),
			CartCleared: result.CartCleared,
		})
	}
}
