package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func money(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineTotal is (price + sum of customization prices) * quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	unit := money(i.Price)
	for _, c := range i.Customization {
		unit = unit.Add(money(c.Price))
	}
	return unit.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// RecalculateTotals derives subtotal, tax and total from the items, the stored tax rate,
// delivery fee and discount. The discount is capped so the total never goes negative.
func (o *Order) RecalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	subtotal = round2(subtotal)
	tax := round2(subtotal.Mul(money(o.TaxRate)))
	fee := round2(money(o.DeliveryFee))
	discount := round2(money(o.Discount))

	gross := subtotal.Add(tax).Add(fee)
	if discount.GreaterThan(gross) {
		discount = gross
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	o.Subtotal = subtotal.InexactFloat64()
	o.TaxAmount = tax.InexactFloat64()
	o.DeliveryFee = fee.InexactFloat64()
	o.Discount = discount.InexactFloat64()
	o.Total = gross.Sub(discount).InexactFloat64()
}

// OfferDiscount applies, per item, the single best live offer to the item's line total.
func OfferDiscount(items []OrderItem, offers []SpecialOffer, now time.Time) float64 {
	total := decimal.Zero
	hundred := decimal.NewFromInt(100)
	for _, item := range items {
		best := decimal.Zero
		for _, offer := range offers {
			if !offer.AppliesTo(item.MenuItemID, now) {
				continue
			}
			if pct := money(offer.Discount); pct.GreaterThan(best) {
				best = pct
			}
		}
		if best.IsZero() {
			continue
		}
		total = total.Add(item.LineTotal().Mul(best).Div(hundred))
	}
	return round2(total).InexactFloat64()
}
