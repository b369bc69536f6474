package settings

import (
	"context"
	"fmt"
	"os"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for JSON documents on the local file system.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based settings loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "settings-loader").Logger(),
	}
}

// Load reads the JSON document at filePath.
func (l *fileLoader) Load(ctx context.Context, filePath string, base model.PublicSettings) (*model.PublicSettings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.logger.Debug().Str("file", filePath).Msg("loading settings file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open settings file")
		return nil, fmt.Errorf("failed to open settings file %s: %w", filePath, err)
	}
	defer file.Close()

	s, err := decode(file, base)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("invalid settings file")
		return nil, fmt.Errorf("settings file %s: %w", filePath, err)
	}

	l.logger.Info().
		Str("file", filePath).
		Str("tax_rate", s.TaxRate.String()).
		Int("cart_limit", s.CartLimit).
		Msg("settings file loaded")

	return s, nil
}
