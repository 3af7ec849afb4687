package cart

import "github.com/google/uuid"

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

// updateItemRequest deliberately skips a min constraint: zero means remove
// and negatives are rejected by the cart service with a typed error.
type updateItemRequest struct {
	Quantity int `json:"quantity"`
}
