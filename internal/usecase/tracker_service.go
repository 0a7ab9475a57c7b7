package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pricelens/backend/internal/domain"
)

// TrackerServiceConfig holds configuration for the tracker service
type TrackerServiceConfig struct {
	Targets             []domain.TargetDescriptor
	SimilarityThreshold float64
	CurrencyMarker      rune
	MaxWorkers          int
}

// TrackerService drives one pricing run: fetch each vendor catalog, resolve targets,
// persist the snapshot and build the report
type TrackerService struct {
	sources  []domain.CatalogSource
	history  *HistoryStore
	resolver *MatchResolver
	targets  []domain.TargetDescriptor
}

// NewTrackerService creates a tracker service with dependencies
func NewTrackerService(
	sources []domain.CatalogSource,
	history *HistoryStore,
	config TrackerServiceConfig,
) *TrackerService {
	matcher := NewCatalogMatcher(MatchConfig{
		SimilarityThreshold: config.SimilarityThreshold,
		CurrencyMarker:      config.CurrencyMarker,
	})

	return &TrackerService{
		sources:  sources,
		history:  history,
		resolver: NewMatchResolver(matcher, config.MaxWorkers),
		targets:  config.Targets,
	}
}

// Targets returns the configured target descriptors
func (s *TrackerService) Targets() []domain.TargetDescriptor {
	return s.targets
}

// Vendors returns the configured vendor names in run order
func (s *TrackerService) Vendors() []string {
	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		names = append(names, src.Vendor())
	}
	return names
}

// Run prices every vendor for the given date. A vendor whose catalog cannot be fetched
// is skipped and listed in Failed; a history failure aborts the run.
func (s *TrackerService) Run(ctx context.Context, date time.Time) (*domain.RunResult, error) {
	result := &domain.RunResult{
		Date:    domain.FormatDate(date),
		Reports: make([]domain.Report, 0, len(s.sources)),
	}

	for _, src := range s.sources {
		log := zap.L().With(zap.String("vendor", src.Vendor()))

		catalog, err := src.Fetch(ctx, s.targets)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Error("tracker: catalog fetch failed", zap.Error(err))
			result.Failed = append(result.Failed, domain.VendorFailure{Vendor: src.Vendor(), Error: err.Error()})
			continue
		}

		report, err := s.PriceCatalog(ctx, date, src.Vendor(), catalog)
		if err != nil {
			return nil, err
		}
		result.Reports = append(result.Reports, *report)
	}

	result.Comparison = BuildComparison(result.Date, result.Reports)
	return result, nil
}

// PriceCatalog resolves an already fetched catalog for one vendor, appends the snapshot
// and returns its report. The delta is taken against the latest total before date, so a
// second run on the same day compares against yesterday rather than the earlier run.
func (s *TrackerService) PriceCatalog(
	ctx context.Context,
	date time.Time,
	vendor string,
	catalog []domain.CatalogEntry,
) (*domain.Report, error) {
	if vendor == "" {
		return nil, domain.ErrInvalidRequest
	}
	log := zap.L().With(zap.String("vendor", vendor))

	outcomes, err := s.resolver.Resolve(ctx, s.targets, catalog)
	if err != nil {
		return nil, err
	}
	snapshot := domain.NewSnapshot(date, vendor, outcomes)

	prior, err := s.history.LatestTotal(ctx, vendor, date.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}

	if err := s.history.Append(ctx, snapshot); err != nil {
		return nil, err
	}

	report := BuildReport(snapshot, prior)
	for _, u := range report.Unresolved {
		log.Warn("tracker: unresolved component",
			zap.String("component", u.Name),
			zap.String("keyword", u.Keyword),
			zap.String("status", string(u.Status)),
		)
	}
	log.Info("tracker: vendor priced",
		zap.Int("catalog_entries", len(catalog)),
		zap.Int64("total", report.Total),
		zap.Int64("delta", report.Delta),
		zap.Int("unresolved", len(report.Unresolved)),
	)
	return &report, nil
}

// Series returns the deduplicated total series for a vendor, or all vendors when empty
func (s *TrackerService) Series(ctx context.Context, vendor string) ([]domain.SeriesPoint, error) {
	return s.history.Series(ctx, vendor)
}

// ComponentSeries returns the deduplicated per-component series
func (s *TrackerService) ComponentSeries(ctx context.Context, vendor string) ([]domain.ComponentPoint, error) {
	return s.history.ComponentSeries(ctx, vendor)
}

// LatestTotal returns the vendor's latest deduplicated total on or before date
func (s *TrackerService) LatestTotal(ctx context.Context, vendor string, date time.Time) (int64, error) {
	if vendor == "" {
		return 0, domain.ErrInvalidRequest
	}
	return s.history.LatestTotal(ctx, vendor, date)
}

// IsStoreError reports whether err came from the history backend
func IsStoreError(err error) bool {
	var storeErr *domain.StoreError
	return errors.As(err, &storeErr)
}
