package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalogue entry. The core only reads it.
type Product struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Category  string          `json:"category" db:"category"`
	Images    []string        `json:"images" db:"images"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// ProductQuery selects a page of the catalogue. An empty Category matches
// every product.
type ProductQuery struct {
	Category string
	Limit    int
	Offset   int
}
