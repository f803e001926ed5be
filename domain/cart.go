package domain

import "github.com/shopspring/decimal"

// LineItem is one entry in the active cart. Quantity is kept >= 1 by the
// cart aggregate; a removal is an explicit operation, never a zero quantity.
type LineItem struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	UnitPrice decimal.Decimal   `json:"unit_price"`
	Quantity  int               `json:"quantity"`
	InStock   bool              `json:"in_stock"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Subtotal is unit price times quantity for this line.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
