package usecase

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pricelens/backend/internal/domain"
)

// MatchResolver runs the matcher and price extractor over every target of one vendor
type MatchResolver struct {
	matcher    *CatalogMatcher
	maxWorkers int
}

// NewMatchResolver creates a resolver. maxWorkers <= 0 sizes the pool to the number of targets.
func NewMatchResolver(matcher *CatalogMatcher, maxWorkers int) *MatchResolver {
	return &MatchResolver{
		matcher:    matcher,
		maxWorkers: maxWorkers,
	}
}

// Resolve returns one outcome per target, in target order. Targets are matched
// concurrently against a shared read-only catalog; each worker writes only its own slot.
func (r *MatchResolver) Resolve(
	ctx context.Context,
	targets []domain.TargetDescriptor,
	catalog []domain.CatalogEntry,
) ([]domain.MatchOutcome, error) {
	outcomes := make([]domain.MatchOutcome, len(targets))
	if len(targets) == 0 {
		return outcomes, nil
	}

	prepared := r.matcher.Prepare(catalog)

	limit := r.maxWorkers
	if limit <= 0 || limit > len(targets) {
		limit = len(targets)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, target := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = r.resolveOne(target, prepared)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "resolve targets")
	}
	return outcomes, nil
}

func (r *MatchResolver) resolveOne(target domain.TargetDescriptor, catalog PreparedCatalog) domain.MatchOutcome {
	outcome := domain.MatchOutcome{Target: target, Status: domain.StatusNoCandidate}

	match, ok := r.matcher.MatchPrepared(target, catalog)
	if !ok {
		zap.L().Debug("resolve: no candidate", zap.String("target", target.Name), zap.String("keyword", target.Keyword))
		return outcome
	}

	outcome.MatchedText = match.Entry.Text
	outcome.Candidates = match.Candidates
	outcome.Fallback = match.Fallback
	outcome.Similarity = match.Similarity

	price, ok := r.matcher.Extractor().Extract(match.Entry.Text)
	if !ok {
		outcome.Status = domain.StatusExtractionFailed
		zap.L().Debug("resolve: price extraction failed", zap.String("target", target.Name), zap.String("text", match.Entry.Text))
		return outcome
	}

	outcome.Price = price
	outcome.PriceOK = true
	outcome.Status = domain.StatusMatched
	return outcome
}
