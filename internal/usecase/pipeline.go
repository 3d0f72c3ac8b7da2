package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/infrastructure/metrics"
	"NewsAggregator/internal/ports"
)

// DefaultMaxCandidates caps how many of the newest candidates one cycle considers.
const DefaultMaxCandidates = 10

// ErrCycleRunning is returned by TryRunCycle while another cycle is in progress.
var ErrCycleRunning = errors.New("fetch cycle already running")

// PipelineDeps wires all driven adapters into the fetch pipeline.
type PipelineDeps struct {
	Sources       ports.SourceRepository
	Articles      ports.ArticleRepository
	Candidates    ports.CandidateSource
	Enricher      ports.Enricher
	MaxCandidates int
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

// Report summarises one fetch cycle.
type Report struct {
	Sources    int `json:"sources"`
	Fetched    int `json:"fetched"`
	Considered int `json:"considered"`
	Duplicates int `json:"duplicates"`
	Added      int `json:"added"`
}

// Pipeline implements the fetch, dedupe, enrich and persist workflow.
type Pipeline struct {
	sources       ports.SourceRepository
	articles      ports.ArticleRepository
	candidates    ports.CandidateSource
	enricher      ports.Enricher
	maxCandidates int
	logger        *slog.Logger
	metrics       *metrics.Metrics

	now   func() time.Time
	newID func() string

	mu sync.Mutex
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	limit := deps.MaxCandidates
	if limit <= 0 {
		limit = DefaultMaxCandidates
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		sources:       deps.Sources,
		articles:      deps.Articles,
		candidates:    deps.Candidates,
		enricher:      deps.Enricher,
		maxCandidates: limit,
		logger:        logger,
		metrics:       deps.Metrics,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// RunCycle runs one cycle, waiting for any cycle already in progress.
func (p *Pipeline) RunCycle(ctx context.Context) (Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run(ctx)
}

// TryRunCycle runs one cycle unless another is in progress.
func (p *Pipeline) TryRunCycle(ctx context.Context) (Report, error) {
	if !p.mu.TryLock() {
		return Report{}, ErrCycleRunning
	}
	defer p.mu.Unlock()
	return p.run(ctx)
}

func (p *Pipeline) run(ctx context.Context) (Report, error) {
	var report Report
	started := p.now()

	sources, err := p.sources.FindAll(ctx)
	if err != nil {
		return report, fmt.Errorf("load sources: %w", err)
	}
	report.Sources = len(sources)
	if len(sources) == 0 {
		p.logger.Warn("no sources configured, skipping fetch")
		return report, nil
	}

	candidates := p.candidates.FetchAll(ctx, sources)
	report.Fetched = len(candidates)

	newestFirst(candidates)
	if len(candidates) > p.maxCandidates {
		candidates = candidates[:p.maxCandidates]
	}
	report.Considered = len(candidates)
	p.metrics.Candidates(len(candidates))

	seen := make(map[string]struct{}, 2*len(candidates))
	var fresh []domain.Article
	for _, c := range candidates {
		if ctx.Err() != nil {
			p.logger.Warn("fetch cycle interrupted", "error", ctx.Err())
			break
		}

		if p.seenInRun(seen, c) || p.stored(ctx, c) {
			report.Duplicates++
			p.metrics.Duplicate()
			continue
		}

		article, err := domain.NewArticle(p.newID(), c.Title, c.URL, c.Source)
		if err != nil {
			p.logger.Warn("skip invalid candidate", "url", c.URL, "error", err)
			continue
		}

		if p.enricher != nil {
			article = article.Enrich(p.enricher.Enrich(ctx, c.Title, c.Snippet))
		}

		now := p.now().UTC()
		article.AddedAt = now
		article.FetchedAt = now
		if !c.PublishedAt.IsZero() {
			article.FetchedAt = c.PublishedAt.UTC()
		}
		article.ContentSnippet = c.Snippet
		article.GUID = c.GUID

		remember(seen, c)
		fresh = append(fresh, article)
	}

	if len(fresh) > 0 {
		saved, err := p.articles.SaveMany(ctx, fresh)
		if err != nil {
			p.logger.Error("persist new articles failed", "count", len(fresh), "error", err)
		} else {
			report.Added = len(saved)
		}
	}

	p.metrics.FetchRun()
	p.metrics.ArticlesAdded(report.Added)
	p.logger.Info("fetch cycle done",
		"sources", report.Sources,
		"fetched", report.Fetched,
		"considered", report.Considered,
		"duplicates", report.Duplicates,
		"added", report.Added,
		"took", p.now().Sub(started),
	)
	return report, nil
}

// stored reports whether the candidate is already persisted, by guid then url.
func (p *Pipeline) stored(ctx context.Context, c domain.Candidate) bool {
	if c.GUID != "" && p.exists(p.articles.FindByGUID(ctx, c.GUID)) {
		return true
	}
	return p.exists(p.articles.FindByURL(ctx, c.URL))
}

func (p *Pipeline) exists(_ domain.Article, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, domain.ErrNotFound):
		return false
	default:
		p.logger.Error("duplicate lookup failed, skipping candidate", "error", err)
		return true
	}
}

func (p *Pipeline) seenInRun(seen map[string]struct{}, c domain.Candidate) bool {
	if _, ok := seen["guid:"+c.GUID]; ok && c.GUID != "" {
		return true
	}
	_, ok := seen["url:"+c.URL]
	return ok
}

func remember(seen map[string]struct{}, c domain.Candidate) {
	if c.GUID != "" {
		seen["guid:"+c.GUID] = struct{}{}
	}
	seen["url:"+c.URL] = struct{}{}
}

var epoch = time.Unix(0, 0).UTC()

// newestFirst sorts by publication date, descending and stable. A zero date
// sorts as the Unix epoch.
func newestFirst(candidates []domain.Candidate) {
	key := func(t time.Time) time.Time {
		if t.IsZero() {
			return epoch
		}
		return t
	}
	slices.SortStableFunc(candidates, func(a, b domain.Candidate) int {
		return key(b.PublishedAt).Compare(key(a.PublishedAt))
	})
}
