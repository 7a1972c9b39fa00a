// Package memory keeps snapshots in process, for tests and dry runs
// where the archive should still be inspectable.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/scrape"
	"github.com/readyrobots/leadengine/internal/snapshot"
)

// Store holds snapshot bodies keyed by object path.
type Store struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func (s *Store) Save(_ context.Context, target leads.ScrapeTarget, page scrape.FetchResponse, at time.Time) (string, error) {
	path := snapshot.ObjectPath(target, at)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = append([]byte(nil), page.Body...)
	return "mem://" + path, nil
}

// Object returns a stored snapshot body.
func (s *Store) Object(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[path]
	return b, ok
}

// Len reports how many snapshots were taken.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
