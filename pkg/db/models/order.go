package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lromero/storefront-backend/pkg/enums"
)

// Order is the immutable record materialized from a cart snapshot after a
// successful payment. Totals are frozen at creation and never recomputed
// from live product prices.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID       uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	OrderNumber      int64               `gorm:"column:order_number;not null;uniqueIndex"`
	InvoiceNumber    string              `gorm:"column:invoice_number;not null;uniqueIndex"`
	Status           enums.OrderStatus   `gorm:"column:status;not null;default:'pending'"`
	Currency         string              `gorm:"column:currency;not null;default:'USD'"`
	Subtotal         decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax              decimal.Decimal     `gorm:"column:tax;type:numeric(12,2);not null"`
	Shipping         decimal.Decimal     `gorm:"column:shipping;type:numeric(12,2);not null"`
	TotalAmount      decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;not null"`
	PaymentReference string              `gorm:"column:payment_reference;not null"`
	Lines            []OrderLine         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
}
