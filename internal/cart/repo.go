package cart

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lromero/storefront-backend/pkg/db/models"
	"github.com/lromero/storefront-backend/pkg/enums"
)

// Repository owns all reads and writes against cart_lines. No other
// component touches the table directly.
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

// ListByIdentity returns the identity's lines in insertion order.
func (r *Repository) ListByIdentity(ctx context.Context, identityKey string) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Where("identity_key = ?", identityKey).
		Order("created_at ASC, id ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// FindByIdentityAndProduct loads a single line or gorm.ErrRecordNotFound.
func (r *Repository) FindByIdentityAndProduct(ctx context.Context, identityKey string, productID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.WithContext(ctx).
		Where("identity_key = ? AND product_id = ?", identityKey, productID).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// Create inserts a new line. The id is assigned client-side so the same code
// path works on postgres and the sqlite test databases.
func (r *Repository) Create(ctx context.Context, line *models.CartLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(line).Error
}

// Upsert inserts the line or, when the (identity_key, product_id) pair
// already exists, adds the line's quantity to the stored row. The conflict
// clause makes the merge-add a single atomic statement on both postgres and
// sqlite, so concurrent adds for the same pair cannot lose updates.
func (r *Repository) Upsert(ctx context.Context, line *models.CartLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "identity_key"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("quantity + excluded.quantity"),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(line).Error
}

// IncrementQuantity adds to an existing line's quantity. Returns the number
// of rows touched: zero means no line exists for the pair yet.
func (r *Repository) IncrementQuantity(ctx context.Context, identityKey string, productID uuid.UUID, by int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("identity_key = ? AND product_id = ?", identityKey, productID).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", by),
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// SetQuantity overwrites an existing line's quantity.
func (r *Repository) SetQuantity(ctx context.Context, identityKey string, productID uuid.UUID, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("identity_key = ? AND product_id = ?", identityKey, productID).
		Updates(map[string]any{
			"quantity":   quantity,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// Delete removes a single line; zero rows affected means it was absent.
func (r *Repository) Delete(ctx context.Context, identityKey string, productID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("identity_key = ? AND product_id = ?", identityKey, productID).
		Delete(&models.CartLine{})
	return res.RowsAffected, res.Error
}

// DeleteAll clears every line under the identity and reports how many went.
func (r *Repository) DeleteAll(ctx context.Context, identityKey string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("identity_key = ?", identityKey).
		Delete(&models.CartLine{})
	return res.RowsAffected, res.Error
}

// ReKey moves a line to a different identity. Fails on the unique index if
// the target identity already has a line for the same product.
func (r *Repository) ReKey(ctx context.Context, lineID uuid.UUID, identityKey string, kind enums.IdentityKind) error {
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Updates(map[string]any{
			"identity_key":  identityKey,
			"identity_kind": kind,
			"updated_at":    time.Now().UTC(),
		}).Error
}

// LockIdentityLines takes row locks on every line under the given identity
// keys, in lexicographic key order so concurrent merges touching the same
// pair cannot deadlock. SQLite serializes writers on its own, so the
// locking read is postgres-only.
func (r *Repository) LockIdentityLines(ctx context.Context, identityKeys ...string) error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	keys := append([]string(nil), identityKeys...)
	sort.Strings(keys)
	for _, key := range keys {
		var lines []models.CartLine
		err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("identity_key = ?", key).
			Find(&lines).Error
		if err != nil {
			return err
		}
	}
	return nil
}
