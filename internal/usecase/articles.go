package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/ports"
)

// Paging bounds for List.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// AddArticleInput carries a manually submitted article.
type AddArticleInput struct {
	Title  string
	URL    string
	Source string
}

// Page is one slice of the newest-first article listing.
type Page struct {
	Items      []domain.Article
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// ArticleService serves article reads and manual writes.
type ArticleService struct {
	articles ports.ArticleRepository
	sanitize func(string) string
	now      func() time.Time
}

// NewArticleService wires the repository. sanitize cleans free-text input and may be nil.
func NewArticleService(articles ports.ArticleRepository, sanitize func(string) string) *ArticleService {
	if sanitize == nil {
		sanitize = func(s string) string { return s }
	}
	return &ArticleService{articles: articles, sanitize: sanitize, now: time.Now}
}

// Add stores a manual article. An article with the same url yields ErrAlreadyExists.
func (s *ArticleService) Add(ctx context.Context, in AddArticleInput) (domain.Article, error) {
	article, err := domain.NewArticle(uuid.NewString(), s.sanitize(in.Title), in.URL, s.sanitize(in.Source))
	if err != nil {
		return domain.Article{}, err
	}

	_, err = s.articles.FindByURL(ctx, article.URL)
	switch {
	case err == nil:
		return domain.Article{}, fmt.Errorf("article url %s: %w", article.URL, domain.ErrAlreadyExists)
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Article{}, fmt.Errorf("check duplicate: %w", err)
	}

	now := s.now().UTC()
	article.AddedAt = now
	article.FetchedAt = now
	article.GUID = article.URL

	saved, err := s.articles.Save(ctx, article)
	if err != nil {
		return domain.Article{}, fmt.Errorf("save article: %w", err)
	}
	return saved, nil
}

// List returns the requested page of articles, newest addedAt first. Out of
// range paging values are clamped.
func (s *ArticleService) List(ctx context.Context, page, pageSize int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	all, err := s.articles.FindAll(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("list articles: %w", err)
	}
	slices.SortStableFunc(all, func(a, b domain.Article) int {
		return b.AddedAt.Compare(a.AddedAt)
	})

	out := Page{
		Items:      []domain.Article{},
		Page:       page,
		PageSize:   pageSize,
		Total:      len(all),
		TotalPages: (len(all) + pageSize - 1) / pageSize,
	}

	start := (page - 1) * pageSize
	if start >= len(all) {
		return out, nil
	}
	end := min(start+pageSize, len(all))
	out.Items = all[start:end]
	return out, nil
}

// Get returns one article or domain.ErrNotFound.
func (s *ArticleService) Get(ctx context.Context, id string) (domain.Article, error) {
	return s.articles.FindByID(ctx, id)
}

// Delete removes one article or returns domain.ErrNotFound.
func (s *ArticleService) Delete(ctx context.Context, id string) error {
	_, err := s.articles.DeleteByID(ctx, id)
	return err
}
