package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lromero/storefront-backend/internal/cart"
	"github.com/lromero/storefront-backend/internal/identity"
	"github.com/lromero/storefront-backend/internal/orders"
	"github.com/lromero/storefront-backend/internal/payments"
	"github.com/lromero/storefront-backend/internal/pricing"
	"github.com/lromero/storefront-backend/internal/products"
	"github.com/lromero/storefront-backend/pkg/config"
	"github.com/lromero/storefront-backend/pkg/db/models"
	"github.com/lromero/storefront-backend/pkg/enums"
	pkgerrors "github.com/lromero/storefront-backend/pkg/errors"
	"github.com/lromero/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Request is one checkout attempt for the authenticated customer. The
// idempotency key scopes the payment attempt; a blank key gets a fresh one.
type Request struct {
	Method         enums.PaymentMethod
	IdempotencyKey string
}

// Result is the materialized order plus whether the post-commit cart clear
// succeeded. A false CartCleared is not an error; the integrity sweep
// collects the leftovers.
type Result struct {
	Order       *models.Order
	CartCleared bool
}

// Service turns a customer's cart into an order. The sequence is fixed:
// price the snapshot, attempt payment exactly once, and only after an
// approved charge insert the order and its lines in a single transaction.
// A declined or timed-out payment leaves no order row and the cart intact.
type Service interface {
	Checkout(ctx context.Context, ident identity.Identity, req Request) (*Result, error)
}

type service struct {
	carts     cart.Service
	orderRepo *orders.Repository
	catalog   products.Catalog
	gateway   payments.Gateway
	calc      *pricing.Calculator
	tx        txRunner
	cfg       config.CheckoutConfig
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(
	carts cart.Service,
	orderRepo *orders.Repository,
	catalog products.Catalog,
	gateway payments.Gateway,
	calc *pricing.Calculator,
	tx txRunner,
	cfg config.CheckoutConfig,
	logg *logger.Logger,
) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if calc == nil {
		return nil, fmt.Errorf("pricing calculator required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		carts:     carts,
		orderRepo: orderRepo,
		catalog:   catalog,
		gateway:   gateway,
		calc:      calc,
		tx:        tx,
		cfg:       cfg,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Checkout(ctx context.Context, ident identity.Identity, req Request) (*Result, error) {
	customerID, ok := ident.CustomerID()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "checkout requires a customer session")
	}
	if !req.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	snapshot, err := s.carts.List(ctx, ident)
	if err != nil {
		return nil, err
	}
	if len(snapshot.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	productNames, err := s.resolveProductNames(ctx, snapshot.Lines)
	if err != nil {
		return nil, err
	}

	totals := s.calc.Compute(snapshot.Lines)

	charge, err := s.attemptPayment(ctx, customerID, req, totals)
	if err != nil {
		return nil, err
	}

	order, err := s.materialize(ctx, customerID, req, snapshot, totals, productNames, charge)
	if err != nil {
		return nil, err
	}

	result := &Result{Order: order, CartCleared: true}
	if _, err := s.carts.Clear(ctx, ident); err != nil {
		result.CartCleared = false
		logCtx := s.logg.WithField(ctx, "error", err.Error())
		s.logg.Warn(logCtx, "cart clear after checkout failed, leaving lines to the integrity sweep")
	}
	return result, nil
}

// attemptPayment makes the single gateway call, bounded by the configured
// timeout so a hung provider cannot hold the request open.
func (s *service) attemptPayment(ctx context.Context, customerID uuid.UUID, req Request, totals pricing.Totals) (*payments.ChargeResult, error) {
	chargeCtx := ctx
	if s.cfg.PaymentTimeout > 0 {
		var cancel context.CancelFunc
		chargeCtx, cancel = context.WithTimeout(ctx, s.cfg.PaymentTimeout)
		defer cancel()
	}

	charge, err := s.gateway.Charge(chargeCtx, payments.ChargeRequest{
		Amount:         totals.Total,
		Currency:       totals.Currency,
		Method:         req.Method,
		CustomerID:     customerID,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentFailed, err, "payment attempt failed")
	}
	return charge, nil
}

// materialize claims an order number and writes the order with its lines in
// one transaction. The invoice number derives from the claimed order number,
// so two checkouts can never mint the same invoice.
func (s *service) materialize(
	ctx context.Context,
	customerID uuid.UUID,
	req Request,
	snapshot *cart.Snapshot,
	totals pricing.Totals,
	productNames map[uuid.UUID]string,
	charge *payments.ChargeResult,
) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)

		number, err := repo.NextOrderNumber(ctx)
		if err != nil {
			return err
		}

		candidate := &models.Order{
			CustomerID:       customerID,
			OrderNumber:      number,
			InvoiceNumber:    invoiceNumber(s.now(), number),
			Status:           enums.OrderStatusConfirmed,
			Currency:         totals.Currency,
			Subtotal:         totals.Subtotal,
			Tax:              totals.Tax,
			Shipping:         totals.Shipping,
			TotalAmount:      totals.Total,
			PaymentMethod:    req.Method,
			PaymentReference: charge.Reference,
			Lines:            make([]models.OrderLine, 0, len(snapshot.Lines)),
		}
		for _, line := range snapshot.Lines {
			candidate.Lines = append(candidate.Lines, models.OrderLine{
				ProductID:   line.ProductID,
				ProductName: productNames[line.ProductID],
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				LineTotal:   line.Subtotal(),
			})
		}

		if err := repo.Create(ctx, candidate); err != nil {
			return err
		}
		order = candidate
		return nil
	})
	if err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "invoice number already claimed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}
	return order, nil
}

// resolveProductNames snapshots the display names before payment. A cart
// line whose product vanished reads as a conflict the client can fix by
// removing the line, not as a server fault.
func (s *service) resolveProductNames(ctx context.Context, lines []models.CartLine) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(lines))
	for _, line := range lines {
		product, err := s.catalog.FindByID(ctx, line.ProductID)
		if err != nil {
			if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart contains an unavailable product").
					WithDetails(map[string]string{"product_id": line.ProductID.String()})
			}
			return nil, err
		}
		names[line.ProductID] = product.Name
	}
	return names, nil
}

func invoiceNumber(at time.Time, orderNumber int64) string {
	return fmt.Sprintf("INV-%s-%d", at.Format("20060102"), orderNumber)
}
