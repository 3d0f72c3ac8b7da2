package parser

import (
	"context"
	"log/slog"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/ports"
)

// FeedAggregator polls every configured source in order and concatenates the results.
type FeedAggregator struct {
	fetcher ports.FeedFetcher
	logger  *slog.Logger
}

var _ ports.CandidateSource = (*FeedAggregator)(nil)

// NewFeedAggregator wires a fetcher with the aggregation loop.
func NewFeedAggregator(fetcher ports.FeedFetcher, log *slog.Logger) *FeedAggregator {
	return &FeedAggregator{
		fetcher: fetcher,
		logger:  log,
	}
}

// FetchAll fetches sources sequentially. A failing source contributes nothing.
func (a *FeedAggregator) FetchAll(ctx context.Context, sources []domain.Source) []domain.Candidate {
	a.debug("fetch all", "sources", len(sources))

	var aggregated []domain.Candidate
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			a.debug("fetch interrupted", "error", err)
			break
		}

		a.debug("process source", "source", src.Name, "url", src.URL)
		results := a.fetcher.Fetch(ctx, src.URL, src.Name)
		for i := range results {
			if results[i].Source == "" {
				results[i].Source = src.Name
			}
		}
		a.debug("source produced candidates", "source", src.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	a.debug("aggregation done", "total_candidates", len(aggregated))
	return aggregated
}

func (a *FeedAggregator) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
