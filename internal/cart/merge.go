package cart

import (
	"context"

	"gorm.io/gorm"

	"github.com/lromero/storefront-backend/internal/identity"
	pkgerrors "github.com/lromero/storefront-backend/pkg/errors"
)

// Merge folds an anonymous cart into a customer cart at login. It runs in a
// single transaction with both identities' lines locked, so the merge is
// all-or-nothing and a concurrent add cannot slip between the read and the
// rewrite. A product in both carts keeps the customer's line and sums the
// quantities; a product only in the anonymous cart is re-keyed. The customer
// line's captured unit price wins on collision.
func (s *service) Merge(ctx context.Context, anon, customer identity.Identity) (*MergeResult, error) {
	if anon.IsZero() || customer.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "both merge identities are required")
	}
	if anon.IsCustomer() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merge source must be an anonymous identity")
	}
	if !customer.IsCustomer() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merge target must be a customer identity")
	}

	var result MergeResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.LockIdentityLines(ctx, anon.Key(), customer.Key()); err != nil {
			return err
		}

		anonLines, err := repo.ListByIdentity(ctx, anon.Key())
		if err != nil {
			return err
		}
		if len(anonLines) == 0 {
			return nil
		}

		customerLines, err := repo.ListByIdentity(ctx, customer.Key())
		if err != nil {
			return err
		}
		existing := make(map[string]struct{}, len(customerLines))
		for _, line := range customerLines {
			existing[line.ProductID.String()] = struct{}{}
		}

		for _, line := range anonLines {
			if _, ok := existing[line.ProductID.String()]; ok {
				if _, err := repo.IncrementQuantity(ctx, customer.Key(), line.ProductID, line.Quantity); err != nil {
					return err
				}
				if _, err := repo.Delete(ctx, anon.Key(), line.ProductID); err != nil {
					return err
				}
				result.CombinedLines++
				continue
			}
			if err := repo.ReKey(ctx, line.ID, customer.Key(), customer.Kind()); err != nil {
				return err
			}
			existing[line.ProductID.String()] = struct{}{}
			result.MovedLines++
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge carts")
	}
	return &result, nil
}
