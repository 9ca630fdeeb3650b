package footage

import (
	"strings"
	"sync"
)

// Registry tracks the URLs and descriptions already used in one run.
// It is safe for concurrent use.
type Registry struct {
	mu           sync.Mutex
	urls         map[string]struct{}
	descriptions map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		urls:         make(map[string]struct{}),
		descriptions: make(map[string]struct{}),
	}
}

func descriptionKey(description string) string {
	return strings.ToLower(strings.Join(strings.Fields(description), " "))
}

// Available reports whether neither the URL nor the description has been used.
func (r *Registry) Available(c Candidate) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.availableLocked(c)
}

func (r *Registry) availableLocked(c Candidate) bool {
	if strings.TrimSpace(c.URL) == "" {
		return false
	}
	if _, used := r.urls[c.URL]; used {
		return false
	}
	if key := descriptionKey(c.Description); key != "" {
		if _, used := r.descriptions[key]; used {
			return false
		}
	}
	return true
}

// Claim atomically checks and registers a candidate. It returns false when
// the URL or description is already taken.
func (r *Registry) Claim(c Candidate) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.availableLocked(c) {
		return false
	}
	r.urls[c.URL] = struct{}{}
	if key := descriptionKey(c.Description); key != "" {
		r.descriptions[key] = struct{}{}
	}
	return true
}

// Len returns the number of claimed URLs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.urls)
}
