package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lromero/storefront-backend/internal/identity"
	"github.com/lromero/storefront-backend/internal/products"
	"github.com/lromero/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lromero/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RemoveStatus distinguishes "removed" from "already absent". Both are
// success outcomes; callers use the distinction for accurate feedback.
type RemoveStatus string

const (
	RemoveStatusRemoved       RemoveStatus = "removed"
	RemoveStatusAlreadyAbsent RemoveStatus = "already_absent"
)

// AddResult reports the line an add produced and whether it was an insert.
type AddResult struct {
	Line    *models.CartLine
	Created bool
}

// Snapshot is the read model returned by List: ordered lines plus exact
// decimal totals computed by summing line subtotals.
type Snapshot struct {
	Lines         []models.CartLine
	TotalQuantity int
	TotalAmount   decimal.Decimal
	Currency      string
}

// MergeResult summarizes what a login merge did.
type MergeResult struct {
	MovedLines    int
	CombinedLines int
}

// Service exposes cart mutations keyed by identity.
type Service interface {
	Add(ctx context.Context, ident identity.Identity, productID uuid.UUID, quantity int) (*AddResult, error)
	UpdateQuantity(ctx context.Context, ident identity.Identity, productID uuid.UUID, quantity int) (*models.CartLine, error)
	Remove(ctx context.Context, ident identity.Identity, productID uuid.UUID) (RemoveStatus, error)
	List(ctx context.Context, ident identity.Identity) (*Snapshot, error)
	Clear(ctx context.Context, ident identity.Identity) (int64, error)
	Merge(ctx context.Context, anon, customer identity.Identity) (*MergeResult, error)
}

type service struct {
	repo    *Repository
	tx      txRunner
	catalog products.Catalog
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, catalog products.Catalog) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	return &service{repo: repo, tx: tx, catalog: catalog}, nil
}

// Add is merge-add: a missing line is inserted capturing the product's
// current price, an existing one gains quantity. The write is one conflict
// clause upsert against the (identity_key, product_id) unique index, so
// simultaneous adds converge on a single line with the summed quantity.
func (s *service) Add(ctx context.Context, ident identity.Identity, productID uuid.UUID, quantity int) (*AddResult, error) {
	if err := validateIdentity(ident); err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.catalog.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	var result AddResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.Upsert(ctx, &models.CartLine{
			IdentityKey:  ident.Key(),
			IdentityKind: ident.Kind(),
			ProductID:    productID,
			Quantity:     quantity,
			UnitPrice:    product.Price,
			Currency:     product.Currency,
		}); err != nil {
			return err
		}

		line, err := repo.FindByIdentityAndProduct(ctx, ident.Key(), productID)
		if err != nil {
			return err
		}
		// Stored lines never hold a quantity below one, so a read-back equal
		// to the amount just added means this call inserted the line.
		result.Created = line.Quantity == quantity
		result.Line = line
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart line")
	}
	return &result, nil
}

// UpdateQuantity sets the absolute quantity. Zero removes the line and
// returns (nil, nil); a negative quantity or a missing line is an error.
func (s *service) UpdateQuantity(ctx context.Context, ident identity.Identity, productID uuid.UUID, quantity int) (*models.CartLine, error) {
	if err := validateIdentity(ident); err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	var line *models.CartLine
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if quantity == 0 {
			affected, err := repo.Delete(ctx, ident.Key(), productID)
			if err != nil {
				return err
			}
			if affected == 0 {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
			}
			return nil
		}

		affected, err := repo.SetQuantity(ctx, ident.Key(), productID, quantity)
		if err != nil {
			return err
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		line, err = repo.FindByIdentityAndProduct(ctx, ident.Key(), productID)
		return err
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	return line, nil
}

// Remove deletes the line if present. Removing an absent line succeeds.
func (s *service) Remove(ctx context.Context, ident identity.Identity, productID uuid.UUID) (RemoveStatus, error) {
	if err := validateIdentity(ident); err != nil {
		return "", err
	}
	if productID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	affected, err := s.repo.Delete(ctx, ident.Key(), productID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
	}
	if affected == 0 {
		return RemoveStatusAlreadyAbsent, nil
	}
	return RemoveStatusRemoved, nil
}

// List returns the cart snapshot. Totals are exact decimal sums of line
// subtotals; no float arithmetic anywhere on the money path.
func (s *service) List(ctx context.Context, ident identity.Identity) (*Snapshot, error) {
	if err := validateIdentity(ident); err != nil {
		return nil, err
	}

	lines, err := s.repo.ListByIdentity(ctx, ident.Key())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart lines")
	}

	snapshot := &Snapshot{Lines: lines, TotalAmount: decimal.Zero}
	for _, line := range lines {
		snapshot.TotalQuantity += line.Quantity
		snapshot.TotalAmount = snapshot.TotalAmount.Add(line.Subtotal())
		if snapshot.Currency == "" {
			snapshot.Currency = line.Currency
		}
	}
	return snapshot, nil
}

// Clear deletes every line under the identity.
func (s *service) Clear(ctx context.Context, ident identity.Identity) (int64, error) {
	if err := validateIdentity(ident); err != nil {
		return 0, err
	}

	removed, err := s.repo.DeleteAll(ctx, ident.Key())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return removed, nil
}

func validateIdentity(ident identity.Identity) error {
	if ident.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart identity is required")
	}
	return nil
}
