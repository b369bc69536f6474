package settings

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"storefront/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const cacheKey = "storefront:settings:public"

// cachedProvider serves settings from Redis and reloads the document on a
// miss. Concurrent misses share one load.
type cachedProvider struct {
	cache    redis.Cmdable
	loader   Loader
	key      string
	defaults model.PublicSettings
	ttl      time.Duration
	group    singleflight.Group
	logger   zerolog.Logger
}

// NewCachedProvider creates a Provider backed by a Redis cache. key is the
// document location handed to loader.
func NewCachedProvider(cache redis.Cmdable, loader Loader, key string, defaults model.PublicSettings, ttl time.Duration, logger zerolog.Logger) Provider {
	return &cachedProvider{
		cache:    cache,
		loader:   loader,
		key:      key,
		defaults: defaults,
		ttl:      ttl,
		logger:   logger.With().Str("component", "settings-provider").Logger(),
	}
}

// Get returns the cached settings, loading them on a miss.
func (p *cachedProvider) Get(ctx context.Context) (model.PublicSettings, error) {
	if s, ok := p.fromCache(ctx); ok {
		return s, nil
	}

	ch := p.group.DoChan(cacheKey, func() (interface{}, error) {
		// Detached so one cancelled caller does not fail the shared load.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return p.load(loadCtx), nil
	})

	select {
	case <-ctx.Done():
		return model.PublicSettings{}, ctx.Err()
	case res := <-ch:
		return res.Val.(model.PublicSettings), nil
	}
}

func (p *cachedProvider) fromCache(ctx context.Context) (model.PublicSettings, bool) {
	raw, err := p.cache.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			p.logger.Warn().Err(err).Msg("settings cache read failed")
		}
		return model.PublicSettings{}, false
	}

	var s model.PublicSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		p.logger.Warn().Err(err).Msg("discarding corrupt settings cache entry")
		return model.PublicSettings{}, false
	}

	return s, true
}

func (p *cachedProvider) load(ctx context.Context) model.PublicSettings {
	s := p.defaults
	loaded, err := p.loader.Load(ctx, p.key, p.defaults)
	if err != nil {
		p.logger.Warn().Err(err).Str("key", p.key).Msg("settings document unavailable, serving defaults")
	} else {
		s = *loaded
	}

	raw, err := json.Marshal(s)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to encode settings for cache")
		return s
	}
	if err := p.cache.Set(ctx, cacheKey, raw, p.ttl).Err(); err != nil {
		p.logger.Warn().Err(err).Msg("settings cache write failed")
	}

	return s
}

// staticProvider always returns the same settings.
type staticProvider struct {
	settings model.PublicSettings
}

// NewStaticProvider returns a Provider that serves s unchanged.
func NewStaticProvider(s model.PublicSettings) Provider {
	return &staticProvider{settings: s}
}

func (p *staticProvider) Get(ctx context.Context) (model.PublicSettings, error) {
	if err := ctx.Err(); err != nil {
		return model.PublicSettings{}, err
	}
	return p.settings, nil
}
