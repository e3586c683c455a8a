package provider

import "fmt"

// Registry is the closed set of configured publishers, keyed by provider
// name. It is built once at startup; lookups at publish time never build
// anything.
type Registry struct {
	byName map[string]Publisher
}

func NewRegistry(pubs []Publisher) *Registry {
	m := make(map[string]Publisher, len(pubs))
	for _, p := range pubs {
		m[p.Name()] = p
	}
	return &Registry{byName: m}
}

// Lookup returns the publisher for a provider name.
func (r *Registry) Lookup(name string) (Publisher, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("no publisher registered for provider %q", name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	return names
}
