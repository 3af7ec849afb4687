package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lromero/storefront-backend/pkg/enums"
)

// CartLine is one (identity, product) entry in a cart. The unique index on
// (identity_key, product_id) is what keeps concurrent adds from producing
// duplicate lines; every write path must go through that constraint.
type CartLine struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	IdentityKey  string             `gorm:"column:identity_key;not null;uniqueIndex:idx_cart_lines_identity_product,priority:1"`
	IdentityKind enums.IdentityKind `gorm:"column:identity_kind;not null"`
	ProductID    uuid.UUID          `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_lines_identity_product,priority:2"`
	Quantity     int                `gorm:"column:quantity;not null"`
	UnitPrice    decimal.Decimal    `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Currency     string             `gorm:"column:currency;not null;default:'USD'"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// Subtotal returns quantity x unit price as an exact decimal.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
