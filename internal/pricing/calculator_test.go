package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lromero/storefront-backend/pkg/config"
	"github.com/lromero/storefront-backend/pkg/db/models"
)

func testCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		Currency:              "USD",
		TaxRatePercent:        "8.25",
		ShippingFlat:          "5.00",
		FreeShippingThreshold: "50.00",
	}
}

func line(price string, qty int) models.CartLine {
	return models.CartLine{
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(price),
		Currency:  "USD",
	}
}

func TestComputeAppliesTaxAndShipping(t *testing.T) {
	calc, err := NewCalculator(testCheckoutConfig())
	require.NoError(t, err)

	totals := calc.Compute([]models.CartLine{line("9.50", 2), line("4.25", 1)})

	require.Equal(t, "23.25", totals.Subtotal.StringFixed(2))
	require.Equal(t, "1.92", totals.Tax.StringFixed(2))
	require.Equal(t, "5.00", totals.Shipping.StringFixed(2))
	require.Equal(t, "30.17", totals.Total.StringFixed(2))
	require.Equal(t, "USD", totals.Currency)
}

func TestComputeFreeShippingThreshold(t *testing.T) {
	calc, err := NewCalculator(testCheckoutConfig())
	require.NoError(t, err)

	totals := calc.Compute([]models.CartLine{line("25.00", 2)})

	require.Equal(t, "50.00", totals.Subtotal.StringFixed(2))
	require.True(t, totals.Shipping.IsZero())
}

func TestComputeExactDecimals(t *testing.T) {
	calc, err := NewCalculator(config.CheckoutConfig{
		Currency:              "USD",
		TaxRatePercent:        "0",
		ShippingFlat:          "0",
		FreeShippingThreshold: "50.00",
	})
	require.NoError(t, err)

	totals := calc.Compute([]models.CartLine{line("0.10", 9)})

	require.Equal(t, "0.90", totals.Subtotal.StringFixed(2))
	require.Equal(t, "0.90", totals.Total.StringFixed(2))
}

func TestComputeEmptyCart(t *testing.T) {
	calc, err := NewCalculator(testCheckoutConfig())
	require.NoError(t, err)

	totals := calc.Compute(nil)

	require.True(t, totals.Subtotal.IsZero())
	require.True(t, totals.Tax.IsZero())
	require.True(t, totals.Shipping.IsZero())
	require.True(t, totals.Total.IsZero())
}

func TestNewCalculatorRejectsBadRates(t *testing.T) {
	cfg := testCheckoutConfig()
	cfg.TaxRatePercent = "not-a-number"
	_, err := NewCalculator(cfg)
	require.Error(t, err)

	cfg = testCheckoutConfig()
	cfg.TaxRatePercent = "-1"
	_, err = NewCalculator(cfg)
	require.Error(t, err)

	cfg = testCheckoutConfig()
	cfg.ShippingFlat = "five"
	_, err = NewCalculator(cfg)
	require.Error(t, err)
}
