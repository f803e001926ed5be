package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SummaryItem is a line captured into an order summary with the price that
// was current when the summary was computed.
type SummaryItem struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// OrderSummary is the derived pricing aggregate. It is never mutated in
// place, only replaced by a fresh projection. Subtotal is the merchandise
// total net of any coupon discount, so Total = Subtotal + Shipping + Tax
// holds for every summary the projector produces.
type OrderSummary struct {
	Items      []SummaryItem   `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Shipping   decimal.Decimal `json:"shipping"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	Currency   string          `json:"currency"`
	CouponCode string          `json:"coupon_code,omitempty"`
	CapturedAt time.Time       `json:"captured_at"`
}

// EmptySummary is the summary of a cart with no items.
func EmptySummary() OrderSummary {
	return OrderSummary{
		Items:    []SummaryItem{},
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
		Shipping: decimal.Zero,
		Tax:      decimal.Zero,
		Total:    decimal.Zero,
		Currency: "USD",
	}
}
