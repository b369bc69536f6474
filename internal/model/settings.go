package model

import "github.com/shopspring/decimal"

// PublicSettings holds the store-wide pricing configuration.
// TaxRate is a percentage (8.5 means 8.5%).
type PublicSettings struct {
	TaxRate               decimal.Decimal `json:"taxRate"`
	ShippingRate          decimal.Decimal `json:"shippingRate"`
	FreeShippingThreshold decimal.Decimal `json:"freeShippingThreshold"`
	CartLimit             int             `json:"cartLimit"`
}

// Totals is the priced breakdown of a cart.
type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	Tax        decimal.Decimal `json:"tax"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}
