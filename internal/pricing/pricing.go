// Package pricing holds the single formula used to price a cart, shared by
// the cart preview and by checkout session creation.
package pricing

import (
	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeTotal prices a cart subtotal against the store settings.
// Shipping is waived when the subtotal reaches the free-shipping threshold.
// Tax is a percentage of the subtotal rounded to cents.
func ComputeTotal(cartTotal decimal.Decimal, settings model.PublicSettings) model.Totals {
	shipping := settings.ShippingRate
	if cartTotal.GreaterThanOrEqual(settings.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := cartTotal.Mul(settings.TaxRate).Div(hundred).Round(2)

	return model.Totals{
		Subtotal:   cartTotal.Round(2),
		Shipping:   shipping.Round(2),
		Tax:        tax,
		GrandTotal: cartTotal.Add(shipping).Add(tax).Round(2),
	}
}

// MinorUnits converts an amount to the smallest currency unit (cents).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts a smallest-unit amount back to a decimal amount.
func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
