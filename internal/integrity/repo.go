package integrity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lromero/storefront-backend/pkg/db/models"
	"github.com/lromero/storefront-backend/pkg/enums"
)

// Repository holds the diagnostic queries. They read cart_lines directly
// because the scanner has to see rows the normal cart paths refuse to
// produce, like duplicates written before the unique index existed.
type Repository struct {
	db *gorm.DB
}

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

// OrphanedLines returns lines whose product is gone or deactivated.
// identityKey narrows the scan; empty means global.
func (r *Repository) OrphanedLines(ctx context.Context, identityKey string) ([]models.CartLine, error) {
	query := r.db.WithContext(ctx).
		Table("cart_lines").
		Select("cart_lines.*").
		Joins("LEFT JOIN products ON products.id = cart_lines.product_id").
		Where("products.id IS NULL OR products.is_active = ?", false)
	if identityKey != "" {
		query = query.Where("cart_lines.identity_key = ?", identityKey)
	}
	var lines []models.CartLine
	if err := query.Order("cart_lines.identity_key ASC, cart_lines.created_at ASC").Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// DuplicateGroup is a (identity, product) pair holding more than one line.
type DuplicateGroup struct {
	IdentityKey string
	ProductID   uuid.UUID
	Count       int
}

// DuplicateGroups finds pairs with more than one line.
func (r *Repository) DuplicateGroups(ctx context.Context, identityKey string) ([]DuplicateGroup, error) {
	query := r.db.WithContext(ctx).
		Table("cart_lines").
		Select("identity_key, product_id, COUNT(*) AS count").
		Group("identity_key, product_id").
		Having("COUNT(*) > 1")
	if identityKey != "" {
		query = query.Where("identity_key = ?", identityKey)
	}
	var groups []DuplicateGroup
	if err := query.Order("identity_key ASC").Scan(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// GroupLines loads every line of one (identity, product) pair, earliest
// created first so callers know which line survives a collapse.
func (r *Repository) GroupLines(ctx context.Context, identityKey string, productID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Where("identity_key = ? AND product_id = ?", identityKey, productID).
		Order("created_at ASC, id ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// InvalidQuantityLines returns persisted lines with quantity at or below zero.
func (r *Repository) InvalidQuantityLines(ctx context.Context, identityKey string) ([]models.CartLine, error) {
	query := r.db.WithContext(ctx).Where("quantity <= 0")
	if identityKey != "" {
		query = query.Where("identity_key = ?", identityKey)
	}
	var lines []models.CartLine
	if err := query.Order("identity_key ASC, created_at ASC").Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// StaleGuestIdentities returns anonymous identity keys where every line is
// older than the cutoff.
func (r *Repository) StaleGuestIdentities(ctx context.Context, identityKey string, cutoff time.Time) ([]string, error) {
	query := r.db.WithContext(ctx).
		Table("cart_lines").
		Select("identity_key").
		Where("identity_kind = ?", enums.IdentityKindAnonymous).
		Group("identity_key").
		Having("MAX(updated_at) < ?", cutoff)
	if identityKey != "" {
		query = query.Where("identity_key = ?", identityKey)
	}
	var keys []string
	if err := query.Order("identity_key ASC").Scan(&keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

// DeleteLines removes lines by id and reports how many went away.
func (r *Repository) DeleteLines(ctx context.Context, lineIDs []uuid.UUID) (int64, error) {
	if len(lineIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("id IN ?", lineIDs).
		Delete(&models.CartLine{})
	return result.RowsAffected, result.Error
}

// SetLineQuantity writes an absolute quantity on one line.
func (r *Repository) SetLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ?", lineID).
		Updates(map[string]any{
			"quantity":   quantity,
			"updated_at": time.Now().UTC(),
		}).Error
}

// DeleteIdentityLines removes every line under the identity.
func (r *Repository) DeleteIdentityLines(ctx context.Context, identityKey string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("identity_key = ?", identityKey).
		Delete(&models.CartLine{})
	return result.RowsAffected, result.Error
}
