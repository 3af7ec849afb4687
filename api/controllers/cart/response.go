package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	cartsvc "github.com/lromero/storefront-backend/internal/cart"
	"github.com/lromero/storefront-backend/pkg/db/models"
)

type lineView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type cartView struct {
	Lines         []lineView      `json:"lines"`
	TotalQuantity int             `json:"total_quantity"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
}

type addResultView struct {
	Line    lineView `json:"line"`
	Created bool     `json:"created"`
}

type removeView struct {
	Status string `json:"status"`
}

type clearView struct {
	RemovedLines int64 `json:"removed_lines"`
}

type mergeView struct {
	MovedLines    int `json:"moved_lines"`
	CombinedLines int `json:"combined_lines"`
}

func newLineView(line models.CartLine) lineView {
	return lineView{
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		UnitPrice: line.UnitPrice,
		Subtotal:  line.Subtotal(),
		Currency:  line.Currency,
		CreatedAt: line.CreatedAt,
		UpdatedAt: line.UpdatedAt,
	}
}

func newCartView(snapshot *cartsvc.Snapshot) cartView {
	lines := make([]lineView, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		lines = append(lines, newLineView(line))
	}
	return cartView{
		Lines:         lines,
		TotalQuantity: snapshot.TotalQuantity,
		TotalAmount:   snapshot.TotalAmount,
		Currency:      snapshot.Currency,
	}
}
