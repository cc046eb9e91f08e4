package gateway

import (
	"fmt"

	"github.com/lattice-hire/interviewer/pkg/config"
	"github.com/lattice-hire/interviewer/pkg/registry"
)

// routeEntry bundles an LlmRoute with the OutputSchema its function must
// produce.
type routeEntry struct {
	route  LlmRoute
	schema OutputSchema
}

// RouteRegistry is the process-wide, read-only mapping from
// "<module>.<function>" to {LlmRoute, OutputSchema}. It is populated
// once from the configuration document at startup; there is no mutation
// after NewRouteRegistry returns.
type RouteRegistry struct {
	*registry.BaseRegistry[routeEntry]
}

// NewRouteRegistry builds a RouteRegistry from the loaded config document.
// schemas maps the same route keys to the OutputSchema each function's call
// must validate against; every key configured in doc.Routes must have a
// matching schema, or NewRouteRegistry fails (a malformed config must fail application
// startup).
func NewRouteRegistry(doc *config.Document, schemas map[string]OutputSchema) (*RouteRegistry, error) {
	reg := &RouteRegistry{BaseRegistry: registry.NewBaseRegistry[routeEntry]()}

	for key, rc := range doc.Routes {
		schema, ok := schemas[key]
		if !ok {
			return nil, fmt.Errorf("route %q has no registered output schema", key)
		}

		entry := routeEntry{
			route: LlmRoute{
				BaseURL:        rc.BaseURL,
				Model:          rc.Model,
				Endpoint:       rc.Endpoint,
				TimeoutMs:      rc.TimeoutMs,
				MaxRetries:     rc.MaxRetries,
				ResponseFormat: rc.ResponseFormat,
				Temperature:    rc.Temperature,
				TopP:           rc.TopP,
			},
			schema: schema,
		}
		if err := reg.Register(key, entry); err != nil {
			return nil, fmt.Errorf("registering route %q: %w", key, err)
		}
	}

	for key := range schemas {
		if _, ok := reg.Get(key); !ok {
			return nil, fmt.Errorf("schema %q has no configured route", key)
		}
	}

	return reg, nil
}

// Lookup resolves "<module>.<function>" to its route and schema.
func (r *RouteRegistry) Lookup(key string) (LlmRoute, OutputSchema, error) {
	entry, ok := r.Get(key)
	if !ok {
		return LlmRoute{}, OutputSchema{}, fmt.Errorf("no route registered for %q (configured routes: %v)", key, r.Keys())
	}
	return entry.route, entry.schema, nil
}
