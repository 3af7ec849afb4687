package products

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lromero/storefront-backend/pkg/db/models"
)

// Catalog is the product collaborator surface the cart and checkout paths
// depend on. Callers must tolerate Exists returning false for a product id
// an existing cart line references; that is the orphaned-reference case the
// integrity engine reports.
type Catalog interface {
	Exists(ctx context.Context, productID uuid.UUID) (bool, error)
	GetPrice(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)
	FindByID(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}
