package parser

import (
	"context"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/infrastructure/metrics"
	"NewsAggregator/internal/ports"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultUserAgent = "NewsAggregator/1.0"
)

// RSSFetcher downloads and parses RSS, Atom and JSON feeds.
type RSSFetcher struct {
	client    *http.Client
	userAgent string
	policy    *bluemonday.Policy
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

var _ ports.FeedFetcher = (*RSSFetcher)(nil)

// FetcherDeps configures an RSSFetcher. Zero values fall back to defaults.
type FetcherDeps struct {
	Client    *http.Client
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// NewRSSFetcher wires an HTTP client; the timeout defaults to 20s.
func NewRSSFetcher(deps FetcherDeps) *RSSFetcher {
	client := deps.Client
	if client == nil {
		timeout := deps.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	ua := deps.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RSSFetcher{
		client:    client,
		userAgent: ua,
		policy:    bluemonday.StrictPolicy(),
		logger:    logger,
		metrics:   deps.Metrics,
		now:       time.Now,
	}
}

// Fetch returns the candidates of a single feed. Any feed-level failure is
// logged and yields an empty slice.
func (f *RSSFetcher) Fetch(ctx context.Context, feedURL, sourceName string) []domain.Candidate {
	fp := gofeed.NewParser()
	fp.Client = f.client
	fp.UserAgent = f.userAgent

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		f.logger.Warn("feed fetch failed", "source", sourceName, "url", feedURL, "error", err)
		f.metrics.FeedError(sourceName)
		return []domain.Candidate{}
	}

	now := f.now().UTC()
	out := make([]domain.Candidate, 0, len(feed.Items))
	for i, item := range feed.Items {
		if item == nil {
			continue
		}
		c, ok := f.toCandidate(item, sourceName, now)
		if !ok {
			f.logger.Warn("skip feed item without title or link", "source", sourceName, "index", i)
			continue
		}
		out = append(out, c)
	}

	f.logger.Debug("feed parsed", "source", sourceName, "items", len(feed.Items), "candidates", len(out))
	return out
}

func (f *RSSFetcher) toCandidate(item *gofeed.Item, sourceName string, now time.Time) (domain.Candidate, bool) {
	title := f.CleanText(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		return domain.Candidate{}, false
	}

	published := now
	switch {
	case item.PublishedParsed != nil:
		published = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		published = item.UpdatedParsed.UTC()
	}

	body := item.Description
	if strings.TrimSpace(body) == "" {
		body = item.Content
	}

	guid := strings.TrimSpace(item.GUID)
	if guid == "" {
		guid = link
	}

	return domain.Candidate{
		Title:       title,
		URL:         link,
		Source:      sourceName,
		PublishedAt: published,
		Snippet:     htmlToText(body),
		GUID:        guid,
	}, true
}

// CleanText strips every tag from s and decodes entities.
func (f *RSSFetcher) CleanText(s string) string {
	return collapseSpace(html.UnescapeString(f.policy.Sanitize(s)))
}

const blockElements = "p, div, br, li, tr, h1, h2, h3, h4, h5, h6, blockquote"

// htmlToText renders the text nodes of an HTML fragment.
func htmlToText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapseSpace(fragment)
	}
	doc.Find(blockElements).AfterHtml(" ")
	return collapseSpace(doc.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
