// Package feed defines where articles come from. Ingestion itself lives
// outside this service; a Source only hands over articles that are already
// fetched and normalized.
package feed

import (
	"context"
	"sync"
	"time"
)

// Article is one normalized news item.
type Article struct {
	ID          string
	Headline    string
	Summary     string
	Publisher   string
	PublishedAt time.Time
	Topics      []string
}

// Source supplies the current article set.
type Source interface {
	// Fetch returns the current articles, newest first.
	Fetch(ctx context.Context) ([]Article, error)

	// Name identifies the source in logs.
	Name() string
}

// MemorySource is a Source backed by an in-process slice. It is the source
// used when articles are pushed into the service over HTTP, and by tests.
type MemorySource struct {
	mu       sync.RWMutex
	articles []Article
}

// NewMemorySource creates an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{}
}

// Name implements Source.
func (s *MemorySource) Name() string { return "memory" }

// Fetch implements Source. The returned slice is a copy; callers may mutate
// it freely.
func (s *MemorySource) Fetch(ctx context.Context) ([]Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Article, len(s.articles))
	copy(out, s.articles)
	return out, nil
}

// Replace swaps the full article set.
func (s *MemorySource) Replace(articles []Article) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.articles = make([]Article, len(articles))
	copy(s.articles, articles)
}

// Add appends articles to the current set.
func (s *MemorySource) Add(articles ...Article) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.articles = append(s.articles, articles...)
}
