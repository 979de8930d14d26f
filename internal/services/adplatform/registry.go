package adplatform

import (
	"fmt"
	"strings"

	"launchpro/internal/config"
)

// Registry resolves platform clients by name while preserving the configured
// order. The first registered platform is the primary.
type Registry struct {
	order   []string
	clients map[string]Client
}

// NewRegistry builds a registry containing one HTTP client per configured
// platform.
func NewRegistry(platforms []config.Platform, opts ...Option) (*Registry, error) {
	registry := &Registry{clients: make(map[string]Client, len(platforms))}
	for _, platform := range platforms {
		if err := registry.Register(NewHTTPClient(platform, opts...)); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds a client to the registry. Names must be unique.
func (r *Registry) Register(client Client) error {
	if client == nil {
		return fmt.Errorf("adplatform registry: nil client")
	}
	name := strings.ToLower(strings.TrimSpace(client.Name()))
	if name == "" {
		return fmt.Errorf("adplatform registry: client name required")
	}
	if r.clients == nil {
		r.clients = make(map[string]Client)
	}
	if _, exists := r.clients[name]; exists {
		return fmt.Errorf("adplatform registry: duplicate platform %q", name)
	}
	r.order = append(r.order, name)
	r.clients[name] = client
	return nil
}

// Lookup returns the client registered under name.
func (r *Registry) Lookup(name string) (Client, bool) {
	client, ok := r.clients[strings.ToLower(strings.TrimSpace(name))]
	return client, ok
}

// Primary returns the first registered client.
func (r *Registry) Primary() (Client, bool) {
	if len(r.order) == 0 {
		return nil, false
	}
	return r.clients[r.order[0]], true
}

// Names returns the registered platform names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Clients returns the registered clients in registration order.
func (r *Registry) Clients() []Client {
	clients := make([]Client, 0, len(r.order))
	for _, name := range r.order {
		clients = append(clients, r.clients[name])
	}
	return clients
}
