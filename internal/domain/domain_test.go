package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArticle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		title   string
		url     string
		source  string
		wantErr bool
	}{
		{name: "valid", title: " Title ", url: "https://example.com/a", source: "X"},
		{name: "missing title", title: "  ", url: "https://example.com/a", source: "X", wantErr: true},
		{name: "missing url", title: "Title", url: "", source: "X", wantErr: true},
		{name: "missing source", title: "Title", url: "https://example.com/a", source: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article, err := NewArticle("", tt.title, tt.url, tt.source)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidArticle)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Title", article.Title)
			assert.Empty(t, article.ID)
		})
	}
}

func TestArticleDedupeKey(t *testing.T) {
	t.Parallel()

	a := Article{URL: "https://example.com/a"}
	assert.Equal(t, "https://example.com/a", a.DedupeKey())

	a.GUID = "g1"
	assert.Equal(t, "g1", a.DedupeKey())
}

func TestArticleEnrichCopiesScore(t *testing.T) {
	t.Parallel()

	score := 7
	e := Enrichment{Classification: CategoryScience, RelevanceScore: &score}
	a := Article{}.Enrich(e)

	score = 1
	require.NotNil(t, a.RelevanceScore)
	assert.Equal(t, 7, *a.RelevanceScore)
	assert.Equal(t, CategoryScience, a.Classification)
}

func TestNewSource(t *testing.T) {
	t.Parallel()

	src, err := NewSource("", "Tecnoblog", "https://tecnoblog.net/feed/")
	require.NoError(t, err)
	assert.NotEmpty(t, src.ID)

	_, err = NewSource("id", "", "https://tecnoblog.net/feed/")
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = NewSource("id", "Bad", "not a url")
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = NewSource("id", "Bad", "ftp://example.com/feed")
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	c, ok := ParseCategory("Science")
	assert.True(t, ok)
	assert.Equal(t, CategoryScience, c)

	_, ok = ParseCategory("science")
	assert.False(t, ok)
	assert.Len(t, AllCategories(), 10)
}
