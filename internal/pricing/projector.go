// Package pricing derives the order summary from cart state. The projection
// is a pure function: same items and inputs always produce the same totals,
// so it can be recomputed on every cart change without side effects.
package pricing

import (
	"time"

	"github.com/fjod/go_checkout/domain"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Discount describes an active coupon. EndDate only matters when a coupon
// is present; carts without one carry no discount inputs at all.
type Discount struct {
	Code    string
	Type    DiscountType
	Amount  decimal.Decimal
	EndDate *time.Time
}

// Expired reports whether the discount window has closed at the given time.
// A nil end date never expires.
func (d Discount) Expired(now time.Time) bool {
	return d.EndDate != nil && now.After(*d.EndDate)
}

// Inputs are the externally supplied pricing parameters. Shipping cost and
// tax rate come from the host; computing them is out of scope here.
type Inputs struct {
	Discount     *Discount
	ShippingCost decimal.Decimal
	TaxRate      decimal.Decimal // e.g. 0.08 for 8%
	Currency     string
	Now          time.Time // zero value means time.Now at projection
}

// Project computes the order summary for the given items. Monetary amounts
// round to 2 decimal places; the result always satisfies
// Total = Subtotal + Shipping + Tax.
func Project(items []domain.LineItem, in Inputs) domain.OrderSummary {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}

	summary := domain.OrderSummary{
		Items:      make([]domain.SummaryItem, 0, len(items)),
		Currency:   currency,
		CapturedAt: now,
	}

	gross := decimal.Zero
	for _, item := range items {
		lineTotal := item.Subtotal()
		summary.Items = append(summary.Items, domain.SummaryItem{
			ItemID:    item.ID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  lineTotal,
		})
		gross = gross.Add(lineTotal)
	}

	discount := decimal.Zero
	if in.Discount != nil && !in.Discount.Expired(now) {
		discount = discountAmount(gross, *in.Discount)
		summary.CouponCode = in.Discount.Code
	}

	subtotal := gross.Sub(discount).Round(2)
	shipping := in.ShippingCost.Round(2)
	tax := subtotal.Mul(in.TaxRate).Round(2)

	summary.Subtotal = subtotal
	summary.Discount = discount.Round(2)
	summary.Shipping = shipping
	summary.Tax = tax
	summary.Total = subtotal.Add(shipping).Add(tax)
	return summary
}

func discountAmount(gross decimal.Decimal, d Discount) decimal.Decimal {
	var amount decimal.Decimal
	switch d.Type {
	case DiscountPercentage:
		amount = gross.Mul(d.Amount).Div(decimal.NewFromInt(100))
	case DiscountFixed:
		amount = d.Amount
	default:
		return decimal.Zero
	}
	if amount.GreaterThan(gross) {
		return gross
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}
