package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/infrastructure/metrics"
	"NewsAggregator/internal/ports"
)

// ErrClosed is returned by mutations after Close.
var ErrClosed = errors.New("repository closed")

// Options tune a file-backed repository.
type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// ArticleRepository keeps articles in memory, indexed by id, url and guid, and
// mirrors them to a JSON array file.
type ArticleRepository struct {
	path   string
	logger *slog.Logger
	writer *debouncedWriter

	mu          sync.RWMutex
	initialized bool
	closed      bool
	byID        map[string]domain.Article
	byURL       map[string]string
	byGUID      map[string]string
	order       []string
}

var _ ports.ArticleRepository = (*ArticleRepository)(nil)

// NewArticleRepository builds an uninitialized repository backed by path.
func NewArticleRepository(path string, opts Options) *ArticleRepository {
	r := &ArticleRepository{
		path:   path,
		logger: opts.logger(),
	}
	r.reset()
	r.writer = newDebouncedWriter("articles", path, opts.Debounce, r.snapshot, r.logger, opts.Metrics)
	return r
}

// Initialize loads the backing file once. Missing or malformed files start empty.
func (r *ArticleRepository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}
	r.load()
	r.initialized = true
	return nil
}

// load replaces the index with the file content. Callers hold mu.
func (r *ArticleRepository) load() {
	r.reset()

	raw, err := readRecords(r.path)
	if err != nil {
		r.logger.Error("cannot load articles, starting empty", "path", r.path, "error", err)
		return
	}

	skipped := 0
	for i, item := range raw {
		var rec articleRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			skipped++
			r.logger.Warn("skip undecodable article record", "index", i, "error", err)
			continue
		}
		article, err := rec.toArticle()
		if err != nil {
			skipped++
			r.logger.Warn("skip invalid article record", "index", i, "error", err)
			continue
		}
		r.put(article)
	}

	r.logger.Info("articles loaded", "path", r.path, "count", len(r.byID), "skipped", skipped)
}

func (r *ArticleRepository) reset() {
	r.byID = map[string]domain.Article{}
	r.byURL = map[string]string{}
	r.byGUID = map[string]string{}
	r.order = nil
}

// put indexes article, replacing any entry with the same id. Callers hold mu.
func (r *ArticleRepository) put(article domain.Article) {
	article = cloneArticle(article)

	if prev, ok := r.byID[article.ID]; ok {
		r.unindex(prev)
	} else {
		r.order = append(r.order, article.ID)
	}

	r.byID[article.ID] = article
	if article.URL != "" {
		r.byURL[article.URL] = article.ID
	}
	if article.GUID != "" {
		r.byGUID[article.GUID] = article.ID
	}
}

// unindex drops secondary keys that still point at article. Callers hold mu.
func (r *ArticleRepository) unindex(article domain.Article) {
	if id, ok := r.byURL[article.URL]; ok && id == article.ID {
		delete(r.byURL, article.URL)
	}
	if id, ok := r.byGUID[article.GUID]; ok && id == article.ID {
		delete(r.byGUID, article.GUID)
	}
}

func (r *ArticleRepository) remove(id string) (domain.Article, bool) {
	article, ok := r.byID[id]
	if !ok {
		return domain.Article{}, false
	}
	r.unindex(article)
	delete(r.byID, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
	return article, true
}

func (r *ArticleRepository) ensure(ctx context.Context) error {
	r.mu.RLock()
	ready := r.initialized
	r.mu.RUnlock()
	if ready {
		return nil
	}
	return r.Initialize(ctx)
}

// Save stores a single article and schedules a write.
func (r *ArticleRepository) Save(ctx context.Context, article domain.Article) (domain.Article, error) {
	if err := r.ensure(ctx); err != nil {
		return domain.Article{}, err
	}
	if article.ID == "" {
		return domain.Article{}, fmt.Errorf("%w: id must be assigned before saving", domain.ErrInvalidArticle)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return domain.Article{}, ErrClosed
	}
	r.put(article)
	r.mu.Unlock()

	r.writer.schedule()
	return cloneArticle(article), nil
}

// SaveMany stores every article that has an id and schedules a single write.
// Articles without an id are skipped and logged.
func (r *ArticleRepository) SaveMany(ctx context.Context, articles []domain.Article) ([]domain.Article, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	saved := make([]domain.Article, 0, len(articles))
	for _, article := range articles {
		if article.ID == "" {
			r.logger.Warn("skip article without id in batch", "title", article.Title)
			continue
		}
		r.put(article)
		saved = append(saved, cloneArticle(article))
	}
	r.mu.Unlock()

	if len(saved) > 0 {
		r.writer.schedule()
	}
	return saved, nil
}

// FindAll returns articles in insertion order.
func (r *ArticleRepository) FindAll(ctx context.Context) ([]domain.Article, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Article, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneArticle(r.byID[id]))
	}
	return out, nil
}

// Count returns the number of stored articles.
func (r *ArticleRepository) Count(ctx context.Context) (int, error) {
	if err := r.ensure(ctx); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}

func (r *ArticleRepository) FindByID(ctx context.Context, id string) (domain.Article, error) {
	if err := r.ensure(ctx); err != nil {
		return domain.Article{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(id)
}

func (r *ArticleRepository) FindByURL(ctx context.Context, url string) (domain.Article, error) {
	if err := r.ensure(ctx); err != nil {
		return domain.Article{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.byURL[url])
}

func (r *ArticleRepository) FindByGUID(ctx context.Context, guid string) (domain.Article, error) {
	if err := r.ensure(ctx); err != nil {
		return domain.Article{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.byGUID[guid])
}

func (r *ArticleRepository) lookup(id string) (domain.Article, error) {
	if id == "" {
		return domain.Article{}, domain.ErrNotFound
	}
	article, ok := r.byID[id]
	if !ok {
		return domain.Article{}, domain.ErrNotFound
	}
	return cloneArticle(article), nil
}

func (r *ArticleRepository) DeleteByID(ctx context.Context, id string) (domain.Article, error) {
	return r.deleteBy(ctx, func() string { return id })
}

func (r *ArticleRepository) DeleteByURL(ctx context.Context, url string) (domain.Article, error) {
	return r.deleteBy(ctx, func() string { return r.byURL[url] })
}

func (r *ArticleRepository) DeleteByGUID(ctx context.Context, guid string) (domain.Article, error) {
	return r.deleteBy(ctx, func() string { return r.byGUID[guid] })
}

// deleteBy resolves the id under the write lock and removes the article.
func (r *ArticleRepository) deleteBy(ctx context.Context, resolve func() string) (domain.Article, error) {
	if err := r.ensure(ctx); err != nil {
		return domain.Article{}, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return domain.Article{}, ErrClosed
	}
	article, ok := r.remove(resolve())
	r.mu.Unlock()

	if !ok {
		return domain.Article{}, domain.ErrNotFound
	}
	r.writer.schedule()
	return article, nil
}

// DeleteAll clears the index and schedules a write of the empty array.
func (r *ArticleRepository) DeleteAll(ctx context.Context) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.reset()
	r.mu.Unlock()

	r.writer.schedule()
	return nil
}

// Flush writes any pending state immediately.
func (r *ArticleRepository) Flush() error {
	return r.writer.flush()
}

// Close flushes pending state and rejects further mutations.
func (r *ArticleRepository) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return r.writer.close()
}

func (r *ArticleRepository) snapshot() ([]byte, error) {
	r.mu.RLock()
	records := make([]articleRecord, 0, len(r.order))
	for _, id := range r.order {
		records = append(records, toArticleRecord(r.byID[id]))
	}
	r.mu.RUnlock()

	return marshalRecords(records)
}

func cloneArticle(a domain.Article) domain.Article {
	if a.RelevanceScore != nil {
		score := *a.RelevanceScore
		a.RelevanceScore = &score
	}
	return a
}
