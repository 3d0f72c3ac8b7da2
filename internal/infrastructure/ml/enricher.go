package ml

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/infrastructure/metrics"
	"NewsAggregator/internal/ports"
)

const (
	maxInputRunes = 1000

	kindCategory  = "category"
	kindRelevance = "relevance"
)

var leadingInt = regexp.MustCompile(`^[+-]?\d+`)

// Enricher asks a text generator for a category and a relevance score.
type Enricher struct {
	generator ports.TextGenerator
	limiter   *rate.Limiter
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

var _ ports.Enricher = (*Enricher)(nil)

// Deps wires an Enricher. A nil Generator disables enrichment.
type Deps struct {
	Generator         ports.TextGenerator
	RequestsPerSecond float64
	Timeout           time.Duration
	Logger            *slog.Logger
	Metrics           *metrics.Metrics
}

// NewEnricher builds the adapter; a zero RequestsPerSecond means no client-side limit.
func NewEnricher(deps Deps) *Enricher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Enricher{
		generator: deps.Generator,
		timeout:   deps.Timeout,
		logger:    logger,
		metrics:   deps.Metrics,
	}
	if deps.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(deps.RequestsPerSecond), 1)
	}
	return e
}

// Enabled reports whether a generator is configured.
func (e *Enricher) Enabled() bool {
	return e != nil && e.generator != nil
}

// Enrich runs classification and scoring concurrently. Fields stay unset when
// enrichment is disabled or the corresponding call fails.
func (e *Enricher) Enrich(ctx context.Context, title, snippet string) domain.Enrichment {
	var out domain.Enrichment
	if !e.Enabled() {
		return out
	}

	text := inputText(title, snippet)

	var g errgroup.Group
	g.Go(func() error {
		if c, ok := e.classify(ctx, text); ok {
			out.Classification = c
		}
		return nil
	})

	var score int
	var scored bool
	g.Go(func() error {
		score, scored = e.score(ctx, text)
		return nil
	})
	_ = g.Wait()

	if scored {
		out.RelevanceScore = &score
	}
	return out
}

func (e *Enricher) classify(ctx context.Context, text string) (domain.Category, bool) {
	answer, err := e.call(ctx, kindCategory, classificationPrompt(text))
	if err != nil {
		return "", false
	}

	c, ok := ParseClassification(answer)
	if !ok {
		e.logger.Warn("unexpected classification, using fallback", "answer", answer, "fallback", c)
		e.metrics.AICall(kindCategory, "fallback")
		return c, true
	}
	e.metrics.AICall(kindCategory, "ok")
	return c, true
}

func (e *Enricher) score(ctx context.Context, text string) (int, bool) {
	answer, err := e.call(ctx, kindRelevance, relevancePrompt(text))
	if err != nil {
		return 0, false
	}

	s, ok := ParseRelevance(answer)
	if !ok {
		e.logger.Warn("invalid relevance score, using default", "answer", answer, "default", s)
		e.metrics.AICall(kindRelevance, "fallback")
		return s, true
	}
	e.metrics.AICall(kindRelevance, "ok")
	return s, true
}

func (e *Enricher) call(ctx context.Context, kind, prompt string) (string, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			e.logger.Error("ai rate limiter wait failed", "kind", kind, "error", err)
			e.metrics.AICall(kind, "error")
			return "", fmt.Errorf("wait limiter: %w", err)
		}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	answer, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		e.logger.Error("ai call failed", "kind", kind, "error", err)
		e.metrics.AICall(kind, "error")
		return "", err
	}
	return answer, nil
}

// ParseClassification maps a model answer onto the category set. The second
// result is false when the answer fell back to Other.
func ParseClassification(answer string) (domain.Category, bool) {
	if c, ok := domain.ParseCategory(strings.TrimSpace(answer)); ok {
		return c, true
	}
	return domain.CategoryOther, false
}

// ParseRelevance reads the leading integer of a model answer. The second
// result is false when the default score was substituted.
func ParseRelevance(answer string) (int, bool) {
	digits := leadingInt.FindString(strings.TrimSpace(answer))
	if digits == "" {
		return domain.DefaultRelevance, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < domain.MinRelevance || n > domain.MaxRelevance {
		return domain.DefaultRelevance, false
	}
	return n, true
}

func inputText(title, snippet string) string {
	text := title
	if snippet != "" {
		text = title + ". " + snippet
	}
	return truncateRunes(text, maxInputRunes)
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func classificationPrompt(text string) string {
	names := make([]string, 0, len(domain.AllCategories()))
	for _, c := range domain.AllCategories() {
		names = append(names, string(c))
	}
	return fmt.Sprintf(
		"Classify the following news item into EXACTLY ONE of these categories: %s. Return ONLY the category name. News: %q\n\nCategory:",
		strings.Join(names, ", "), text,
	)
}

func relevancePrompt(text string) string {
	return fmt.Sprintf(
		"Rate the overall relevance or impact of this news item on a scale from 1 to 10, where 1 is barely relevant and 10 is highly relevant or impactful. Consider reach, importance and timeliness. Return ONLY the score number (1 to 10). News: %q\n\nRelevance score (1-10):",
		text,
	)
}
