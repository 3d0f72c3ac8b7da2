package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"NewsAggregator/internal/domain"
)

// articleRecord is the on-disk shape of an article. Optional fields are
// pointers so missing and null values decode the same way.
type articleRecord struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	URL            string     `json:"url"`
	Source         string     `json:"source"`
	AddedAt        *time.Time `json:"addedAt"`
	FetchedAt      *time.Time `json:"fetchedAt"`
	ContentSnippet *string    `json:"contentSnippet"`
	GUID           *string    `json:"guid"`
	Classification *string    `json:"classification"`
	RelevanceScore *int       `json:"relevanceScore"`

	LegacyClassification *string `json:"aiClassification,omitempty"`
}

type sourceRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

func toArticleRecord(a domain.Article) articleRecord {
	rec := articleRecord{
		ID:             a.ID,
		Title:          a.Title,
		URL:            a.URL,
		Source:         a.Source,
		AddedAt:        timePtr(a.AddedAt),
		FetchedAt:      timePtr(a.FetchedAt),
		ContentSnippet: stringPtr(a.ContentSnippet),
		GUID:           stringPtr(a.GUID),
		Classification: stringPtr(string(a.Classification)),
	}
	if a.RelevanceScore != nil {
		score := *a.RelevanceScore
		rec.RelevanceScore = &score
	}
	return rec
}

// toArticle validates a decoded record. Unknown categories collapse to Other and
// out-of-range scores are dropped.
func (r articleRecord) toArticle() (domain.Article, error) {
	a, err := domain.NewArticle(r.ID, r.Title, r.URL, r.Source)
	if err != nil {
		return domain.Article{}, err
	}
	if a.ID == "" {
		return domain.Article{}, fmt.Errorf("%w: missing id", domain.ErrInvalidArticle)
	}

	if r.AddedAt != nil {
		a.AddedAt = *r.AddedAt
	}
	if r.FetchedAt != nil {
		a.FetchedAt = *r.FetchedAt
	}
	a.ContentSnippet = deref(r.ContentSnippet)
	a.GUID = deref(r.GUID)

	classification := deref(r.Classification)
	if classification == "" {
		classification = deref(r.LegacyClassification)
	}
	if classification != "" {
		if c, ok := domain.ParseCategory(classification); ok {
			a.Classification = c
		} else {
			a.Classification = domain.CategoryOther
		}
	}

	if r.RelevanceScore != nil && *r.RelevanceScore >= domain.MinRelevance && *r.RelevanceScore <= domain.MaxRelevance {
		score := *r.RelevanceScore
		a.RelevanceScore = &score
	}

	return a, nil
}

func (r sourceRecord) toSource() (domain.Source, error) {
	return domain.NewSource(r.ID, r.Name, r.URL)
}

// errMalformed marks a file that exists but is not a JSON array.
var errMalformed = errors.New("malformed store file")

// readRecords returns the raw array elements of the file at path. A missing or
// blank file yields no records and a nil error.
func readRecords(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errMalformed, path, err)
	}
	return raw, nil
}

func marshalRecords[T any](records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}
	return data, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
