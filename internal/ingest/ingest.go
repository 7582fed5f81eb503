// Package ingest turns provider feeds into source records ready for
// resolution. Each provider gets an adapter; adapters only reshape data and
// never resolve anything themselves.
package ingest

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/uruley/4HorsemenDFS/pkg/models"
)

// Adapter parses one provider's feed format into source records.
type Adapter interface {
	// SourceName is the provider key the records carry into resolution.
	SourceName() string
	// Parse reads a full feed and returns its records in feed order.
	Parse(r io.Reader) ([]models.SourceRecord, error)
}

// Registry holds the adapters known to the service, keyed by source name.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates a registry preloaded with the built-in adapters.
func NewRegistry() *Registry {
	r := &Registry{
		adapters: make(map[string]Adapter),
	}
	r.Register(NewDraftKingsAdapter())
	r.Register(NewNflverseAdapter())
	return r
}

// Register adds an adapter, replacing any previous one for the same source.
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[strings.ToLower(adapter.SourceName())] = adapter
}

// Get retrieves the adapter for a source name.
func (r *Registry) Get(sourceName string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[strings.ToLower(sourceName)]
	return adapter, ok
}

// Sources lists the registered source names, sorted.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		sources = append(sources, name)
	}
	sort.Strings(sources)
	return sources
}

// headerIndex maps lowercased CSV header names to their column positions.
func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return index
}

// column returns the trimmed cell at the named column, or "" when the column
// is absent or the row is short.
func column(row []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// requireColumns verifies the feed carries every column resolution needs.
func requireColumns(index map[string]int, names ...string) error {
	for _, name := range names {
		if _, ok := index[name]; !ok {
			return fmt.Errorf("feed is missing required column %q", name)
		}
	}
	return nil
}
