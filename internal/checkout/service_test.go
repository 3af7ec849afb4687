package checkout

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lromero/storefront-backend/internal/cart"
	"github.com/lromero/storefront-backend/internal/identity"
	"github.com/lromero/storefront-backend/internal/orders"
	"github.com/lromero/storefront-backend/internal/payments"
	"github.com/lromero/storefront-backend/internal/pricing"
	"github.com/lromero/storefront-backend/pkg/config"
	"github.com/lromero/storefront-backend/pkg/db/models"
	"github.com/lromero/storefront-backend/pkg/enums"
	pkgerrors "github.com/lromero/storefront-backend/pkg/errors"
	"github.com/lromero/storefront-backend/pkg/logger"
)

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  sku TEXT NOT NULL,
  price TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS cart_lines (
  id TEXT PRIMARY KEY,
  identity_key TEXT NOT NULL,
  identity_kind TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (identity_key, product_id)
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  order_number INTEGER NOT NULL UNIQUE,
  invoice_number TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'pending',
  currency TEXT NOT NULL DEFAULT 'USD',
  subtotal TEXT NOT NULL,
  tax TEXT NOT NULL,
  shipping TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  payment_reference TEXT NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_lines (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price TEXT NOT NULL,
  line_total TEXT NOT NULL,
  created_at DATETIME
);`,
		`DELETE FROM order_lines`,
		`DELETE FROM orders`,
		`DELETE FROM cart_lines`,
		`DELETE FROM products`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubCatalog struct {
	products map[uuid.UUID]*models.Product
}

func (c *stubCatalog) FindByID(_ context.Context, productID uuid.UUID) (*models.Product, error) {
	product, ok := c.products[productID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (c *stubCatalog) Exists(_ context.Context, productID uuid.UUID) (bool, error) {
	_, ok := c.products[productID]
	return ok, nil
}

func (c *stubCatalog) GetPrice(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	product, err := c.FindByID(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return product.Price, nil
}

type checkoutFixture struct {
	db      *gorm.DB
	svc     Service
	carts   cart.Service
	catalog *stubCatalog
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	db := setupCheckoutTestDB(t)
	catalog := &stubCatalog{products: make(map[uuid.UUID]*models.Product)}
	runner := gormTxRunner{db: db}

	carts, err := cart.NewService(cart.NewRepository(db), runner, catalog)
	require.NoError(t, err)

	cfg := config.CheckoutConfig{
		Currency:              "USD",
		PaymentTimeout:        time.Second,
		TaxRatePercent:        "8.25",
		ShippingFlat:          "5.00",
		FreeShippingThreshold: "50.00",
	}
	calc, err := pricing.NewCalculator(cfg)
	require.NoError(t, err)

	logg := logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})

	svc, err := NewService(carts, orders.NewRepository(db), catalog, payments.NewSimulator(0), calc, runner, cfg, logg)
	require.NoError(t, err)

	return &checkoutFixture{db: db, svc: svc, carts: carts, catalog: catalog}
}

func (f *checkoutFixture) addProduct(t *testing.T, name, price string) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:       uuid.New(),
		Name:     name,
		SKU:      "SKU-" + uuid.NewString()[:8],
		Price:    decimal.RequireFromString(price),
		Currency: "USD",
		IsActive: true,
	}
	f.catalog.products[product.ID] = product
	return product
}

func (f *checkoutFixture) countOrders(t *testing.T) int64 {
	t.Helper()

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	return count
}

func TestCheckoutSuccess(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	customer := identity.Customer(uuid.New())

	mug := f.addProduct(t, "Mug", "9.50")
	plate := f.addProduct(t, "Plate", "4.25")

	_, err := f.carts.Add(ctx, customer, mug.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.Add(ctx, customer, plate.ID, 1)
	require.NoError(t, err)

	result, err := f.svc.Checkout(ctx, customer, Request{Method: enums.PaymentMethodCard})
	require.NoError(t, err)
	require.True(t, result.CartCleared)

	order := result.Order
	require.Equal(t, enums.OrderStatusConfirmed, order.Status)
	require.Len(t, order.Lines, 2)
	require.Equal(t, "23.25", order.Subtotal.StringFixed(2))
	require.Equal(t, "1.92", order.Tax.StringFixed(2))
	require.Equal(t, "5.00", order.Shipping.StringFixed(2))
	require.Equal(t, "30.17", order.TotalAmount.StringFixed(2))
	require.NotEmpty(t, order.PaymentReference)
	require.True(t, strings.HasPrefix(order.InvoiceNumber, "INV-"))
	require.True(t, strings.HasSuffix(order.InvoiceNumber, "-1"))

	snapshot, err := f.carts.List(ctx, customer)
	require.NoError(t, err)
	require.Empty(t, snapshot.Lines)
}

func TestCheckoutDeclinedPaymentLeavesNoTrace(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	customer := identity.Customer(uuid.New())

	mug := f.addProduct(t, "Mug", "9.50")
	_, err := f.carts.Add(ctx, customer, mug.ID, 2)
	require.NoError(t, err)

	_, err = f.svc.Checkout(ctx, customer, Request{
		Method:         enums.PaymentMethodCard,
		IdempotencyKey: "attempt-" + payments.DeclineMarker,
	})
	require.Equal(t, pkgerrors.CodePaymentFailed, pkgerrors.CodeOf(err))

	require.Zero(t, f.countOrders(t))
	snapshot, err := f.carts.List(ctx, customer)
	require.NoError(t, err)
	require.Len(t, snapshot.Lines, 1)
	require.Equal(t, 2, snapshot.Lines[0].Quantity)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	customer := identity.Customer(uuid.New())

	_, err := f.svc.Checkout(context.Background(), customer, Request{Method: enums.PaymentMethodCard})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	require.Zero(t, f.countOrders(t))
}

func TestCheckoutRequiresCustomer(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.Checkout(context.Background(), identity.Anonymous("10.0.0.1"), Request{Method: enums.PaymentMethodCard})
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
}

func TestCheckoutRejectsUnknownMethod(t *testing.T) {
	f := newCheckoutFixture(t)
	customer := identity.Customer(uuid.New())

	_, err := f.svc.Checkout(context.Background(), customer, Request{Method: enums.PaymentMethod("barter")})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestCheckoutUnavailableProductConflicts(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	customer := identity.Customer(uuid.New())

	mug := f.addProduct(t, "Mug", "9.50")
	_, err := f.carts.Add(ctx, customer, mug.ID, 1)
	require.NoError(t, err)

	delete(f.catalog.products, mug.ID)

	_, err = f.svc.Checkout(ctx, customer, Request{Method: enums.PaymentMethodCard})
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
	require.Zero(t, f.countOrders(t))
}

func TestCheckoutSequentialOrderNumbers(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	mug := f.addProduct(t, "Mug", "9.50")

	first := identity.Customer(uuid.New())
	second := identity.Customer(uuid.New())

	_, err := f.carts.Add(ctx, first, mug.ID, 1)
	require.NoError(t, err)
	_, err = f.carts.Add(ctx, second, mug.ID, 1)
	require.NoError(t, err)

	a, err := f.svc.Checkout(ctx, first, Request{Method: enums.PaymentMethodCard})
	require.NoError(t, err)
	b, err := f.svc.Checkout(ctx, second, Request{Method: enums.PaymentMethodCard})
	require.NoError(t, err)

	require.EqualValues(t, 1, a.Order.OrderNumber)
	require.EqualValues(t, 2, b.Order.OrderNumber)
	require.NotEqual(t, a.Order.InvoiceNumber, b.Order.InvoiceNumber)
}
