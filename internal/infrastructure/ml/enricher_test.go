package ml

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsAggregator/internal/domain"
)

type fakeGenerator struct {
	mu       sync.Mutex
	prompts  []string
	category string
	score    string
	catErr   error
	scoreErr error
	inflight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if strings.HasPrefix(prompt, "Classify") {
		return f.category, f.catErr
	}
	return f.score, f.scoreErr
}

func TestEnrichAcceptsValidAnswers(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{category: " Science\n", score: "8", delay: 50 * time.Millisecond}
	e := NewEnricher(Deps{Generator: gen})

	got := e.Enrich(context.Background(), "Title", "Snippet")
	assert.Equal(t, domain.CategoryScience, got.Classification)
	require.NotNil(t, got.RelevanceScore)
	assert.Equal(t, 8, *got.RelevanceScore)

	assert.EqualValues(t, 2, gen.peak.Load(), "calls should overlap")
	require.Len(t, gen.prompts, 2)
	for _, p := range gen.prompts {
		assert.Contains(t, p, "Title. Snippet")
	}
}

func TestEnrichCoercesAnswers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		category string
		score    string
		wantCat  domain.Category
		wantRel  int
	}{
		{name: "unknown category", category: "Gossip", score: "3", wantCat: domain.CategoryOther, wantRel: 3},
		{name: "empty answers", category: "", score: "", wantCat: domain.CategoryOther, wantRel: domain.DefaultRelevance},
		{name: "out of range", category: "Sports", score: "11", wantCat: domain.CategorySports, wantRel: domain.DefaultRelevance},
		{name: "zero", category: "Sports", score: "0", wantCat: domain.CategorySports, wantRel: domain.DefaultRelevance},
		{name: "leading integer", category: "World", score: "7/10", wantCat: domain.CategoryWorld, wantRel: 7},
		{name: "prose", category: "technology", score: "Score: 9", wantCat: domain.CategoryOther, wantRel: domain.DefaultRelevance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := NewEnricher(Deps{Generator: &fakeGenerator{category: tt.category, score: tt.score}})
			got := e.Enrich(context.Background(), "Title", "")
			assert.Equal(t, tt.wantCat, got.Classification)
			require.NotNil(t, got.RelevanceScore)
			assert.Equal(t, tt.wantRel, *got.RelevanceScore)
		})
	}
}

func TestEnrichCallFailuresLeaveFieldsUnset(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{catErr: errors.New("boom"), score: "6"}
	got := NewEnricher(Deps{Generator: gen}).Enrich(context.Background(), "Title", "")
	assert.Empty(t, got.Classification)
	require.NotNil(t, got.RelevanceScore)
	assert.Equal(t, 6, *got.RelevanceScore)

	gen = &fakeGenerator{category: "Health", scoreErr: errors.New("boom")}
	got = NewEnricher(Deps{Generator: gen}).Enrich(context.Background(), "Title", "")
	assert.Equal(t, domain.CategoryHealth, got.Classification)
	assert.Nil(t, got.RelevanceScore)
}

func TestEnrichTimeout(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{category: "Health", score: "4", delay: time.Second}
	got := NewEnricher(Deps{Generator: gen, Timeout: 20 * time.Millisecond}).Enrich(context.Background(), "Title", "")
	assert.Empty(t, got.Classification)
	assert.Nil(t, got.RelevanceScore)
}

func TestEnrichDisabled(t *testing.T) {
	t.Parallel()

	e := NewEnricher(Deps{})
	assert.False(t, e.Enabled())
	got := e.Enrich(context.Background(), "Title", "Snippet")
	assert.Empty(t, got.Classification)
	assert.Nil(t, got.RelevanceScore)
}

func TestInputTextTruncatesRunes(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", 1500)
	got := inputText("T", long)
	assert.Equal(t, maxInputRunes, len([]rune(got)))
	assert.True(t, strings.HasPrefix(got, "T. é"))

	assert.Equal(t, "Only title", inputText("Only title", ""))
}

func TestRateLimiterCancelled(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{category: "Health", score: "4"}
	e := NewEnricher(Deps{Generator: gen, RequestsPerSecond: 0.001})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	first := e.Enrich(ctx, "Title", "")
	assert.True(t, (first.Classification != "") != (first.RelevanceScore != nil), "burst allows exactly one call")

	second := e.Enrich(ctx, "Title", "")
	assert.Empty(t, second.Classification)
	assert.Nil(t, second.RelevanceScore)
}
