package provider

import (
	"fmt"
	"log/slog"
)

// Registry manages registered Backend implementations and selects one per
// repository: an explicit override wins, then remote-URL detection, then the
// first backend with a usable CLI in registration order.
type Registry struct {
	backends []Backend
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a Backend implementation to the registry. Registration order
// is the fallback priority order.
func (r *Registry) Register(b Backend) {
	r.backends = append(r.backends, b)
}

// Get looks up a registered backend by its Name().
func (r *Registry) Get(name string) (Backend, error) {
	for _, b := range r.backends {
		if b.Name() == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: no backend named %q", ErrInvalidConfiguration, name)
}

// Detect returns the first registered backend whose MatchesRemote reports
// true for the given git remote URL.
func (r *Registry) Detect(remote string) (Backend, bool) {
	for _, b := range r.backends {
		if b.MatchesRemote(remote) {
			return b, true
		}
	}
	return nil, false
}

// Select picks the backend for a repository. A non-empty override names the
// backend explicitly and fails fast when its CLI is missing. Otherwise the
// remote URL picks the backend when its CLI is usable; failing that, the
// first backend with a usable CLI wins in registration order.
func (r *Registry) Select(remote, override string) (Backend, error) {
	if override != "" {
		b, err := r.Get(override)
		if err != nil {
			return nil, err
		}
		if !b.Available() {
			return nil, fmt.Errorf("%w: %s CLI not found", ErrProviderUnavailable, b.Name())
		}
		return b, nil
	}

	if b, ok := r.Detect(remote); ok {
		if b.Available() {
			return b, nil
		}
		slog.Warn("detected backend has no usable CLI, probing fallbacks", "remote", remote, "backend", b.Name())
	}

	for _, b := range r.backends {
		if b.Available() {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: remote %q", ErrNoProviderAvailable, remote)
}
