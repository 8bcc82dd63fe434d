// Package insight turns articles into generated briefs and keywords. It is
// the layer that actually drives the provider chain: it builds prompts, runs
// the fallback orchestrator over the configured adapters, caches results, and
// records metrics.
package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tidings-hq/tidings/internal/feed"
	"tidings-hq/tidings/internal/store"
	"tidings-hq/tidings/pkg/fallback"
	"tidings-hq/tidings/pkg/providerfactory"
	"tidings-hq/tidings/pkg/providers"
	"tidings-hq/tidings/pkg/telemetry/metrics"
)

// briefCacheKey is the store key for the current daily brief.
const briefCacheKey = "daily-brief"

// ErrNoArticles is returned when the source has nothing to summarize.
var ErrNoArticles = errors.New("insight: no articles available")

// Brief is a generated daily brief.
type Brief struct {
	ID           string    `json:"id"`
	Summary      string    `json:"summary"`
	Keywords     []string  `json:"keywords"`
	Provider     string    `json:"provider"`
	ArticleCount int       `json:"article_count"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// ArticleKeywords pairs one article with its extracted keywords.
type ArticleKeywords struct {
	ArticleID string   `json:"article_id"`
	Keywords  []string `json:"keywords"`
}

// Service orchestrates generation over the provider chain.
type Service struct {
	factory *providerfactory.Factory
	source  feed.Source
	cache   *store.Store
	metrics *metrics.Collector

	temperature     float64
	maxOutputTokens int
}

// Options carries the generation parameters forwarded on every request.
type Options struct {
	Temperature     float64
	MaxOutputTokens int
}

// NewService wires the insight service. cache and collector may be nil; the
// service then skips caching and metrics respectively.
func NewService(factory *providerfactory.Factory, source feed.Source, cache *store.Store, collector *metrics.Collector, opts Options) *Service {
	return &Service{
		factory:         factory,
		source:          source,
		cache:           cache,
		metrics:         collector,
		temperature:     opts.Temperature,
		maxOutputTokens: opts.MaxOutputTokens,
	}
}

// Brief returns the current daily brief, serving from the cache when a fresh
// entry exists and regenerating otherwise.
func (s *Service) Brief(ctx context.Context) (*Brief, error) {
	if cached := s.loadCachedBrief(ctx); cached != nil {
		return cached, nil
	}
	return s.Refresh(ctx)
}

// Refresh regenerates the daily brief unconditionally and replaces the cached
// entry. The scheduler calls this on its refresh interval.
func (s *Service) Refresh(ctx context.Context) (*Brief, error) {
	articles, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("insight: failed to fetch articles: %w", err)
	}
	if len(articles) == 0 {
		return nil, ErrNoArticles
	}

	tag := "brief-" + uuid.NewString()
	req := briefRequest(articles, tag)
	s.applyOptions(req)

	outcome, err := s.run(ctx, req)
	if err != nil {
		return nil, err
	}

	brief := &Brief{
		ID:           uuid.NewString(),
		Summary:      outcome.Result.Primary,
		Keywords:     outcome.Result.Keywords,
		Provider:     outcome.Provider,
		ArticleCount: len(articles),
		GeneratedAt:  time.Now().UTC(),
	}

	s.saveCachedBrief(ctx, brief)

	slog.Info("brief generated",
		"tag", tag,
		"provider", brief.Provider,
		"articles", brief.ArticleCount,
		"keywords", len(brief.Keywords),
	)

	return brief, nil
}

// Keywords extracts keywords for each article independently and concurrently.
// Extractions do not share state; one article's failure does not abort the
// others. The returned slice is positionally aligned with the input, and the
// error (if any) joins every per-article failure.
func (s *Service) Keywords(ctx context.Context, articles []feed.Article) ([]ArticleKeywords, error) {
	results := make([]ArticleKeywords, len(articles))
	errs := make([]error, len(articles))

	var wg sync.WaitGroup
	for i, a := range articles {
		wg.Add(1)
		go func(i int, a feed.Article) {
			defer wg.Done()

			tag := "keywords-" + uuid.NewString()
			req := keywordRequest(a, tag)
			s.applyOptions(req)

			// Failed slots keep the article ID and an empty list so the
			// response stays positionally aligned and well-formed JSON.
			results[i] = ArticleKeywords{ArticleID: a.ID, Keywords: []string{}}

			outcome, err := s.run(ctx, req)
			if err != nil {
				errs[i] = fmt.Errorf("article %s: %w", a.ID, err)
				return
			}
			if kw := outcome.Result.Keywords; len(kw) > 0 {
				results[i].Keywords = kw
			}
		}(i, a)
	}
	wg.Wait()

	return results, errors.Join(errs...)
}

// run executes one generation over the full provider chain.
func (s *Service) run(ctx context.Context, req *providers.GenerationRequest) (*fallback.Outcome, error) {
	adapters := s.factory.Available()

	attempts := make([]fallback.Attempt, 0, len(adapters))
	for _, adapter := range adapters {
		attempts = append(attempts, fallback.Attempt{
			Provider: adapter.Name(),
			Call:     s.instrumented(adapter, req),
		})
	}

	outcome, err := fallback.Run(ctx, req.DiagnosticTag, attempts)
	s.recordRun(err, len(attempts))
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// instrumented wraps one adapter call with latency and outcome metrics.
func (s *Service) instrumented(adapter providers.Adapter, req *providers.GenerationRequest) func(context.Context) (*providers.GenerationResult, error) {
	return func(ctx context.Context) (*providers.GenerationResult, error) {
		start := time.Now()
		result, err := adapter.Generate(ctx, req)

		if s.metrics != nil {
			elapsed := time.Since(start).Seconds()
			if err != nil {
				outcome := errorType(err)
				s.metrics.RecordProviderCall(adapter.Name(), outcome, elapsed)
				s.metrics.RecordProviderError(adapter.Name(), outcome)
			} else {
				s.metrics.RecordProviderCall(adapter.Name(), "success", elapsed)
				s.metrics.RecordRecoveryStage(string(result.Stage))
			}
		}

		return result, err
	}
}

// recordRun records the chain-level outcome.
func (s *Service) recordRun(err error, attempts int) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.metrics.RecordFallbackRun("success", attempts)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		s.metrics.RecordFallbackRun("cancelled", attempts)
	default:
		s.metrics.RecordFallbackRun("exhausted", attempts)
	}
}

// errorType maps a provider error to its metrics label.
func errorType(err error) string {
	switch {
	case errors.Is(err, providers.ErrTransport):
		return "transport"
	case errors.Is(err, providers.ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, providers.ErrMalformedOutput):
		return "malformed_output"
	default:
		return "other"
	}
}

func (s *Service) applyOptions(req *providers.GenerationRequest) {
	req.Temperature = s.temperature
	req.MaxOutputTokens = s.maxOutputTokens
	req.ApplyDefaults()
}

func (s *Service) loadCachedBrief(ctx context.Context) *Brief {
	if s.cache == nil {
		return nil
	}

	payload, _, err := s.cache.Load(ctx, briefCacheKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("brief cache read failed", "error", err)
		}
		if s.metrics != nil {
			s.metrics.RecordCacheLookup("miss")
		}
		return nil
	}

	var brief Brief
	if err := json.Unmarshal(payload, &brief); err != nil {
		slog.Warn("brief cache entry is corrupt, regenerating", "error", err)
		if s.metrics != nil {
			s.metrics.RecordCacheLookup("miss")
		}
		return nil
	}

	if s.metrics != nil {
		s.metrics.RecordCacheLookup("hit")
	}
	return &brief
}

func (s *Service) saveCachedBrief(ctx context.Context, brief *Brief) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(brief)
	if err != nil {
		slog.Warn("failed to encode brief for cache", "error", err)
		return
	}
	if err := s.cache.Save(ctx, briefCacheKey, payload); err != nil {
		slog.Warn("failed to cache brief", "error", err)
	}
}
