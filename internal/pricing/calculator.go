package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lromero/storefront-backend/pkg/config"
	"github.com/lromero/storefront-backend/pkg/db/models"
)

var hundred = decimal.NewFromInt(100)

// Totals carries the money breakdown for a checkout. All values are exact
// decimals rounded to cents; Total = Subtotal + Tax + Shipping.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
	Currency string
}

// Calculator prices a set of cart lines using a flat tax rate and flat
// shipping with a free-shipping threshold.
type Calculator struct {
	currency          string
	taxRate           decimal.Decimal
	shippingFlat      decimal.Decimal
	freeShippingAbove decimal.Decimal
}

// NewCalculator parses the configured rates. Rates are carried as strings in
// config so a value like 8.25 never passes through a float.
func NewCalculator(cfg config.CheckoutConfig) (*Calculator, error) {
	taxRate, err := decimal.NewFromString(cfg.TaxRatePercent)
	if err != nil {
		return nil, fmt.Errorf("parse tax rate %q: %w", cfg.TaxRatePercent, err)
	}
	if taxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate cannot be negative")
	}
	shipping, err := decimal.NewFromString(cfg.ShippingFlat)
	if err != nil {
		return nil, fmt.Errorf("parse shipping flat %q: %w", cfg.ShippingFlat, err)
	}
	threshold, err := decimal.NewFromString(cfg.FreeShippingThreshold)
	if err != nil {
		return nil, fmt.Errorf("parse free shipping threshold %q: %w", cfg.FreeShippingThreshold, err)
	}
	return &Calculator{
		currency:          cfg.Currency,
		taxRate:           taxRate,
		shippingFlat:      shipping,
		freeShippingAbove: threshold,
	}, nil
}

// Compute sums the line subtotals and applies tax and shipping. Tax is
// rounded half-up to cents on the subtotal, not per line, so the invoice
// matches what a register would print.
func (c *Calculator) Compute(lines []models.CartLine) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Subtotal())
	}

	tax := subtotal.Mul(c.taxRate).Div(hundred).Round(2)

	shipping := c.shippingFlat
	if subtotal.IsZero() || subtotal.GreaterThanOrEqual(c.freeShippingAbove) {
		shipping = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
		Currency: c.currency,
	}
}
