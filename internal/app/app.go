// Package app wires the station catalog, resolver and departure service from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/trntxt/trntxt/internal/cache"
	"github.com/trntxt/trntxt/internal/config"
	"github.com/trntxt/trntxt/internal/departure"
	"github.com/trntxt/trntxt/internal/ldb"
	"github.com/trntxt/trntxt/internal/station"
	"github.com/trntxt/trntxt/pkg/http/client"
)

type App struct {
	Config     *config.Config
	Catalog    *station.Catalog
	Resolver   *station.Resolver
	Departures *departure.Service

	resolverCache *cache.ResolverCache
}

// Build loads the station catalog and creates the services that use it.
// A missing API key is logged but not fatal, so station lookups still work.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	httpClient := client.New(client.Options{
		Timeout:    cfg.HTTPTimeout,
		MaxRetries: cfg.MaxRetries,
	})

	opener := &station.SourceOpener{HTTP: httpClient}
	if cache.IsS3URI(cfg.StationsSource) || cache.IsS3URI(cfg.IgnoreStationsSource) {
		s3Client, err := cache.NewS3Client(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating S3 client: %w", err)
		}
		opener.S3 = cache.NewS3StationSource(s3Client)
	}

	catalog, err := station.LoadCatalogFrom(ctx, opener, cfg.StationsSource, cfg.IgnoreStationsSource)
	if err != nil {
		return nil, fmt.Errorf("loading stations: %w", err)
	}

	return New(cfg, catalog, ldb.New(ldb.Options{
		URL:        cfg.LDBWSURL,
		Token:      cfg.APIKey,
		NumRows:    cfg.NumRows,
		HTTPClient: httpClient,
	}))
}

// New wires an App around an already loaded catalog and upstream
func New(cfg *config.Config, catalog *station.Catalog, upstream departure.Upstream) (*App, error) {
	var memo station.ResultCache
	var resolverCache *cache.ResolverCache
	if cfg.ResolverCacheSize > 0 {
		var err error
		resolverCache, err = cache.NewResolverCache(cfg.ResolverCacheSize)
		if err != nil {
			return nil, err
		}
		memo = resolverCache
	}

	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("Departure requests will fail until API_KEY is set")
	}

	return &App{
		Config:   cfg,
		Catalog:  catalog,
		Resolver: station.NewResolver(catalog, memo),
		Departures: departure.NewService(upstream, catalog,
			departure.WithMaxConcurrentDetails(cfg.MaxConcurrentDetails),
			departure.WithNumRows(cfg.NumRows),
		),
		resolverCache: resolverCache,
	}, nil
}

// CacheStats reports resolver memo hits and misses. It is nil when the memo is disabled.
func (a *App) CacheStats() map[string]uint64 {
	if a.resolverCache == nil {
		return nil
	}
	stats := a.resolverCache.GetCacheStats()
	stats["lru_entries"] = uint64(a.resolverCache.Len())
	return stats
}

// LogCacheStats writes the resolver memo statistics at info level
func (a *App) LogCacheStats() {
	stats := a.CacheStats()
	if stats == nil {
		return
	}
	log.Info().
		Uint64("lru_hits", stats["lru_hits"]).
		Uint64("lru_misses", stats["lru_misses"]).
		Uint64("lru_entries", stats["lru_entries"]).
		Msg("Resolver cache stats")
}
