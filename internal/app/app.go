// Package app assembles the tracker from configuration.
package app

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/cache"
	"github.com/pricelens/backend/internal/infrastructure/catalog"
	"github.com/pricelens/backend/internal/infrastructure/history"
	"github.com/pricelens/backend/internal/usecase"
)

// App holds the wired tracker and the resources that must be released on shutdown
type App struct {
	Tracker *usecase.TrackerService
	Config  *config.Config

	backend io.Closer
	cache   *cache.MemoryCache
}

// New builds the history backend, catalog sources and tracker service described by cfg
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	backend, err := NewBackend(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	catalogCache := cache.NewMemoryCache(time.Minute)
	sources, err := NewSources(cfg, catalogCache)
	if err != nil {
		backend.Close()
		catalogCache.Close()
		return nil, err
	}

	store := usecase.NewHistoryStore(backend, usecase.HistoryStoreConfig{
		CarryForward: domain.CarryForward(cfg.History.CarryForward),
	})

	tracker := usecase.NewTrackerService(sources, store, usecase.TrackerServiceConfig{
		Targets:             cfg.Targets,
		SimilarityThreshold: cfg.Matching.SimilarityThreshold,
		CurrencyMarker:      cfg.Matching.Marker(),
		MaxWorkers:          cfg.Matching.MaxWorkers,
	})

	zap.L().Info("app: tracker ready",
		zap.String("store", cfg.Store.Driver),
		zap.Int("targets", len(cfg.Targets)),
		zap.Strings("vendors", tracker.Vendors()),
		zap.Float64("similarity_threshold", cfg.Matching.SimilarityThreshold),
		zap.String("carry_forward", cfg.History.CarryForward),
	)

	return &App{
		Tracker: tracker,
		Config:  cfg,
		backend: backend,
		cache:   catalogCache,
	}, nil
}

// Close releases the history backend and stops the cache sweeper
func (a *App) Close() error {
	a.cache.Close()
	return a.backend.Close()
}

// Backend is a history backend that holds resources until closed
type Backend interface {
	domain.HistoryBackend
	io.Closer
}

// NewBackend opens the configured history backend
func NewBackend(ctx context.Context, cfg config.StoreConfig) (Backend, error) {
	switch cfg.Driver {
	case config.StoreMemory:
		return history.NewMemoryBackend(), nil
	case config.StoreSQLite:
		backend, err := history.NewSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return nil, eris.Errorf("app: unknown store driver %q", cfg.Driver)
	}
}

// NewSources builds one catalog source per configured vendor. Network sources share
// one rate-limited client and are fronted by the catalog cache.
func NewSources(cfg *config.Config, catalogCache *cache.MemoryCache) ([]domain.CatalogSource, error) {
	client := catalog.NewClient(catalog.ClientOptions{
		Timeout:           cfg.Catalog.Timeout,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
		Burst:             cfg.Catalog.Burst,
		UserAgent:         cfg.Catalog.UserAgent,
	})

	sources := make([]domain.CatalogSource, 0, len(cfg.Vendors))
	for _, vc := range cfg.Vendors {
		var source domain.CatalogSource
		switch vc.Kind {
		case config.VendorOptionList:
			source = catalog.NewOptionListSource(vc.Name, vc.URL, vc.Charset, vc.Selector, client)
		case config.VendorSearch:
			source = catalog.NewSearchSource(vc.Name, vc.URL, vc.Charset, catalog.SearchSelectors{
				QueryParam: vc.QueryParam,
				Name:       vc.NameSelector,
				Price:      vc.PriceSelector,
			}, client)
		case config.VendorFile:
			sources = append(sources, catalog.NewFileSource(vc.Name, vc.Path))
			continue
		default:
			return nil, eris.Wrapf(domain.ErrUnknownVendor, "vendor %s kind %q", vc.Name, vc.Kind)
		}
		sources = append(sources, cache.NewCachedSource(source, catalogCache, cfg.Catalog.CacheTTL))
	}
	return sources, nil
}
