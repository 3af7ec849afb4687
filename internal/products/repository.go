package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lromero/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lromero/storefront-backend/pkg/errors"
)

// Repository implements Catalog against the products table.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads a product row. Inactive products are treated as absent so
// a deactivated product behaves exactly like a deleted one for cart adds.
func (r *Repository) FindByID(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", productID, true).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, nil
}

// Exists reports whether the product id resolves to an active product.
func (r *Repository) Exists(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND is_active = ?", productID, true).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product existence")
	}
	return count > 0, nil
}

// GetPrice returns the current catalog price for the product.
func (r *Repository) GetPrice(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	product, err := r.FindByID(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return product.Price, nil
}
