package query

import (
	"slices"
	"strings"
	"time"
)

// DefaultWildcard is the keyword wildcard character.
const DefaultWildcard = "*"

// Engine describes a search backend the frontend can route queries to.
type Engine struct {
	Name     string
	FullName string
	// BackendAddr is the host:port of the backend session channel.
	BackendAddr string
	// BackendTimeout bounds a single backend request.
	BackendTimeout time.Duration
	// ImageInput reports whether the engine accepts image queries.
	ImageInput bool
	// SkipProgress marks engines whose results are near instant.
	SkipProgress bool
	// SimilarEngine is the engine used for "find similar" follow-ups.
	SimilarEngine string
}

// Registry is the read-only set of engines and datasets a Normalizer accepts.
type Registry struct {
	engines        map[string]Engine
	datasets       map[string]string
	defaultDataset string
	wildcard       string
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDefaultDataset sets the dataset used when a query names none.
func WithDefaultDataset(name string) RegistryOption {
	return func(r *Registry) {
		r.defaultDataset = name
	}
}

// WithWildcard overrides the keyword wildcard. It must be a single character
// other than the curated marker; anything else is ignored.
func WithWildcard(w string) RegistryOption {
	return func(r *Registry) {
		if len(w) == 1 && w[0] != CuratedMarker {
			r.wildcard = w
		}
	}
}

// NewRegistry creates a registry. Engine names are matched case-insensitively.
// An empty dataset map accepts any dataset name.
func NewRegistry(engines []Engine, datasets map[string]string, opts ...RegistryOption) *Registry {
	r := &Registry{
		engines:  make(map[string]Engine, len(engines)),
		datasets: make(map[string]string, len(datasets)),
		wildcard: DefaultWildcard,
	}
	for _, e := range engines {
		e.Name = strings.ToLower(strings.TrimSpace(e.Name))
		r.engines[e.Name] = e
	}
	for name, desc := range datasets {
		r.datasets[name] = desc
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.defaultDataset == "" && len(r.datasets) == 1 {
		for name := range r.datasets {
			r.defaultDataset = name
		}
	}
	return r
}

// Engine returns the engine registered under name.
func (r *Registry) Engine(name string) (Engine, bool) {
	e, ok := r.engines[strings.ToLower(strings.TrimSpace(name))]
	return e, ok
}

// EngineNames returns the registered engine names in sorted order.
func (r *Registry) EngineNames() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// HasDataset reports whether name is an accepted dataset.
func (r *Registry) HasDataset(name string) bool {
	if len(r.datasets) == 0 {
		return name != ""
	}
	_, ok := r.datasets[name]
	return ok
}

// Datasets returns a copy of the dataset name to description map.
func (r *Registry) Datasets() map[string]string {
	out := make(map[string]string, len(r.datasets))
	for k, v := range r.datasets {
		out[k] = v
	}
	return out
}

// DefaultDataset returns the dataset used when a query names none.
func (r *Registry) DefaultDataset() string { return r.defaultDataset }

// Wildcard returns the keyword wildcard character.
func (r *Registry) Wildcard() string { return r.wildcard }
