package ports

import (
	"context"
	"time"

	"NewsAggregator/internal/domain"
)

// ArticleRepository stores articles and answers dedupe lookups.
// Finders return domain.ErrNotFound when nothing matches.
type ArticleRepository interface {
	Initialize(ctx context.Context) error
	Save(ctx context.Context, article domain.Article) (domain.Article, error)
	SaveMany(ctx context.Context, articles []domain.Article) ([]domain.Article, error)
	FindAll(ctx context.Context) ([]domain.Article, error)
	FindByID(ctx context.Context, id string) (domain.Article, error)
	FindByURL(ctx context.Context, url string) (domain.Article, error)
	FindByGUID(ctx context.Context, guid string) (domain.Article, error)
	DeleteByID(ctx context.Context, id string) (domain.Article, error)
	DeleteByURL(ctx context.Context, url string) (domain.Article, error)
	DeleteByGUID(ctx context.Context, guid string) (domain.Article, error)
	DeleteAll(ctx context.Context) error
}

// SourceRepository stores the configured feeds.
type SourceRepository interface {
	Initialize(ctx context.Context) error
	Save(ctx context.Context, source domain.Source) (domain.Source, error)
	FindAll(ctx context.Context) ([]domain.Source, error)
	FindByID(ctx context.Context, id string) (domain.Source, error)
	FindByURL(ctx context.Context, url string) (domain.Source, error)
	Update(ctx context.Context, source domain.Source) (domain.Source, error)
	Delete(ctx context.Context, id string) (domain.Source, error)
	DeleteAll(ctx context.Context) error
}

// FeedFetcher retrieves and parses a single feed. Failures yield an empty slice.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL, sourceName string) []domain.Candidate
}

// CandidateSource aggregates candidates across all sources.
type CandidateSource interface {
	FetchAll(ctx context.Context, sources []domain.Source) []domain.Candidate
}

// Enricher classifies and scores a candidate. Unset fields mean the model was
// unavailable or the call failed.
type Enricher interface {
	Enrich(ctx context.Context, title, snippet string) domain.Enrichment
}

// TextGenerator sends a prompt to a generative model and returns its completion.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
