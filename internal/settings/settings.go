// Package settings supplies the store-wide pricing configuration read by the
// cart summary and checkout paths.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"storefront/internal/config"
	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

// Provider returns the current public settings.
type Provider interface {
	// Get never fails because a document is missing; it falls back to the
	// configured defaults. An error means the request context ended.
	Get(ctx context.Context) (model.PublicSettings, error)
}

// Loader reads a settings document from a backing store.
type Loader interface {
	// Load reads the document at key. Fields absent from the document keep
	// the values of base.
	Load(ctx context.Context, key string, base model.PublicSettings) (*model.PublicSettings, error)
}

// document is the on-disk shape. Every field is optional.
type document struct {
	TaxRate               *decimal.Decimal `json:"taxRate"`
	ShippingRate          *decimal.Decimal `json:"shippingRate"`
	FreeShippingThreshold *decimal.Decimal `json:"freeShippingThreshold"`
	CartLimit             *int             `json:"cartLimit"`
}

// Defaults builds the settings served when no document is reachable.
func Defaults(cfg config.SettingsConfig) (model.PublicSettings, error) {
	tax, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		return model.PublicSettings{}, fmt.Errorf("invalid default tax rate %q: %w", cfg.TaxRate, err)
	}
	shipping, err := decimal.NewFromString(cfg.ShippingRate)
	if err != nil {
		return model.PublicSettings{}, fmt.Errorf("invalid default shipping rate %q: %w", cfg.ShippingRate, err)
	}
	threshold, err := decimal.NewFromString(cfg.FreeShippingThreshold)
	if err != nil {
		return model.PublicSettings{}, fmt.Errorf("invalid default free shipping threshold %q: %w", cfg.FreeShippingThreshold, err)
	}

	s := model.PublicSettings{
		TaxRate:               tax,
		ShippingRate:          shipping,
		FreeShippingThreshold: threshold,
		CartLimit:             cfg.CartLimit,
	}
	if err := validate(s); err != nil {
		return model.PublicSettings{}, err
	}

	return s, nil
}

// decode parses a settings document and overlays it on base.
func decode(r io.Reader, base model.PublicSettings) (*model.PublicSettings, error) {
	var doc document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode settings document: %w", err)
	}

	s := base
	if doc.TaxRate != nil {
		s.TaxRate = *doc.TaxRate
	}
	if doc.ShippingRate != nil {
		s.ShippingRate = *doc.ShippingRate
	}
	if doc.FreeShippingThreshold != nil {
		s.FreeShippingThreshold = *doc.FreeShippingThreshold
	}
	if doc.CartLimit != nil {
		s.CartLimit = *doc.CartLimit
	}

	if err := validate(s); err != nil {
		return nil, err
	}

	return &s, nil
}

func validate(s model.PublicSettings) error {
	if s.TaxRate.IsNegative() {
		return fmt.Errorf("tax rate must not be negative")
	}
	if s.ShippingRate.IsNegative() {
		return fmt.Errorf("shipping rate must not be negative")
	}
	if s.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("free shipping threshold must not be negative")
	}
	if s.CartLimit < 1 {
		return fmt.Errorf("cart limit must be at least 1")
	}
	return nil
}
