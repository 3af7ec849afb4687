package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lromero/storefront-backend/pkg/db/models"
)

// Repository owns reads and writes against orders and order_lines.
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

// NextOrderNumber claims the next number. On postgres this pulls from the
// order_number_seq sequence, which never hands the same value to two
// transactions. The fallback is max+1 for the sqlite test database, where a
// single writer holds the file lock.
func (r *Repository) NextOrderNumber(ctx context.Context) (int64, error) {
	var next int64
	if r.db.Dialector.Name() == "postgres" {
		err := r.db.WithContext(ctx).Raw(`SELECT nextval('order_number_seq')`).Scan(&next).Error
		return next, err
	}
	err := r.db.WithContext(ctx).
		Raw(`SELECT COALESCE(MAX(order_number), 0) + 1 FROM orders`).
		Scan(&next).Error
	return next, err
}

// Create inserts the order and its lines in one statement batch. Must run
// inside the caller's transaction so a line failure rolls the order back.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Lines {
		if order.Lines[i].ID == uuid.Nil {
			order.Lines[i].ID = uuid.New()
		}
		order.Lines[i].OrderID = order.ID
	}
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByID loads one order with its lines.
func (r *Repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByCustomer returns the customer's orders newest first, lines preloaded.
func (r *Repository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("customer_id = ?", customerID).
		Order("created_at DESC, order_number DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
