package provider

import (
	"slices"
	"sync"
)

// Registry holds all registered provider adapters keyed by source.
type Registry struct {
	mu        sync.RWMutex
	providers map[SourceName]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[SourceName]Provider),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name, or nil if not registered.
func (r *Registry) Get(name SourceName) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// All returns all registered providers in a stable order: known sources in
// AllProviderNames order, then any others sorted by name.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Provider
	seen := make(map[SourceName]bool, len(r.providers))
	for _, name := range AllProviderNames() {
		if p, ok := r.providers[name]; ok {
			result = append(result, p)
			seen[name] = true
		}
	}
	var extra []SourceName
	for name := range r.providers {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	for _, name := range extra {
		result = append(result, r.providers[name])
	}
	return result
}

// Fetcher returns the ReleaseFetcher for a candidate source. Pseudo-release
// candidates resolve through the MusicBrainz adapter.
func (r *Registry) Fetcher(source SourceName) ReleaseFetcher {
	if source == SourceMusicBrainzPseudo {
		source = SourceMusicBrainz
	}
	p := r.Get(source)
	if p == nil {
		return nil
	}
	f, _ := p.(ReleaseFetcher)
	return f
}
