package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog row cart lines reference. The cart subsystem never
// mutates products; deletion happens through the (out of scope) admin panel,
// which is what produces orphaned cart references.
type Product struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string          `gorm:"column:name;not null"`
	SKU       string          `gorm:"column:sku;not null;uniqueIndex"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Currency  string          `gorm:"column:currency;not null;default:'USD'"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
