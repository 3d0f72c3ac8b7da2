package domain

import (
	"fmt"
	"strings"
	"time"
)

// Article is a news item tracked by the aggregator.
type Article struct {
	ID             string
	Title          string
	URL            string
	Source         string
	AddedAt        time.Time
	FetchedAt      time.Time
	ContentSnippet string
	GUID           string
	Classification Category
	RelevanceScore *int
}

// NewArticle validates the required fields and returns an article value.
// The id may be empty here; it must be assigned before the article is persisted.
func NewArticle(id, title, url, source string) (Article, error) {
	title = strings.TrimSpace(title)
	url = strings.TrimSpace(url)
	source = strings.TrimSpace(source)

	if title == "" || url == "" || source == "" {
		return Article{}, fmt.Errorf("%w: title, url and source are required", ErrInvalidArticle)
	}

	return Article{
		ID:     strings.TrimSpace(id),
		Title:  title,
		URL:    url,
		Source: source,
	}, nil
}

// DedupeKey returns the guid, falling back to the url when the origin did not provide one.
func (a Article) DedupeKey() string {
	if a.GUID != "" {
		return a.GUID
	}
	return a.URL
}

// Enrich copies classification and score onto the article.
func (a Article) Enrich(e Enrichment) Article {
	a.Classification = e.Classification
	if e.RelevanceScore != nil {
		score := *e.RelevanceScore
		a.RelevanceScore = &score
	}
	return a
}

// Candidate is a parsed feed item not yet confirmed as new or duplicate.
type Candidate struct {
	Title       string
	URL         string
	Source      string
	PublishedAt time.Time
	Snippet     string
	GUID        string
}

// Enrichment carries the optional AI results for a single candidate.
// A zero Classification or a nil RelevanceScore means the value is unset.
type Enrichment struct {
	Classification Category
	RelevanceScore *int
}
