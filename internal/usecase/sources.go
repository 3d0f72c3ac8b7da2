package usecase

import (
	"context"
	"errors"
	"fmt"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/ports"
)

// SourceService manages the configured feeds.
type SourceService struct {
	sources ports.SourceRepository
}

func NewSourceService(sources ports.SourceRepository) *SourceService {
	return &SourceService{sources: sources}
}

func (s *SourceService) List(ctx context.Context) ([]domain.Source, error) {
	return s.sources.FindAll(ctx)
}

// Add registers a feed. A feed url already present yields ErrAlreadyExists.
func (s *SourceService) Add(ctx context.Context, name, url string) (domain.Source, error) {
	src, err := domain.NewSource("", name, url)
	if err != nil {
		return domain.Source{}, err
	}

	_, err = s.sources.FindByURL(ctx, src.URL)
	switch {
	case err == nil:
		return domain.Source{}, fmt.Errorf("source url %s: %w", src.URL, domain.ErrAlreadyExists)
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Source{}, fmt.Errorf("check duplicate: %w", err)
	}

	return s.sources.Save(ctx, src)
}

// Update replaces the name and url of an existing feed.
func (s *SourceService) Update(ctx context.Context, id, name, url string) (domain.Source, error) {
	return s.sources.Update(ctx, domain.Source{ID: id, Name: name, URL: url})
}

func (s *SourceService) Delete(ctx context.Context, id string) error {
	_, err := s.sources.Delete(ctx, id)
	return err
}
