// Package dispatch maps (category, type) pairs to content builders.
package dispatch

import (
	"fmt"
	"sort"
	"sync"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
)

// BuildFunc renders the envelope for one email type.
type BuildFunc func(payload domain.Payload) (*domain.Envelope, error)

// Route is one entry of the routing table, as listed for auditing.
type Route struct {
	Category domain.Category  `json:"category"`
	Type     domain.EmailType `json:"type"`
	Target   string           `json:"target"`
}

type entry struct {
	target string
	build  BuildFunc
}

// Dispatcher is a two-level lookup: category, then type. It has no side
// effects beyond calling the registered builder.
type Dispatcher struct {
	mu     sync.RWMutex
	routes map[domain.Category]map[domain.EmailType]entry
}

func New() *Dispatcher {
	return &Dispatcher{routes: make(map[domain.Category]map[domain.EmailType]entry)}
}

// AddCategory registers a category with no routes yet.
func (d *Dispatcher) AddCategory(category domain.Category) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.routes[category]; !ok {
		d.routes[category] = make(map[domain.EmailType]entry)
	}
}

// Register routes (category, t) to fn. target names the builder for audit
// listings, e.g. "security/two_factor_enabled". Re-registering replaces.
func (d *Dispatcher) Register(category domain.Category, t domain.EmailType, target string, fn BuildFunc) {
	d.AddCategory(category)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes[category][t] = entry{target: target, build: fn}
}

// Dispatch builds the envelope for a job. An unregistered category yields
// domain.ErrUnknownCategory; a registered category without the type yields
// domain.ErrUnknownEmailType. Builder errors are returned as is.
func (d *Dispatcher) Dispatch(category domain.Category, t domain.EmailType, payload domain.Payload) (*domain.Envelope, error) {
	d.mu.RLock()
	types, ok := d.routes[category]
	var e entry
	var found bool
	if ok {
		e, found = types[t]
	}
	d.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCategory, category)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrUnknownEmailType, category, t)
	}

	env, err := e.build(payload)
	if err != nil {
		return nil, fmt.Errorf("build %s/%s: %w", category, t, err)
	}
	env.Category = category
	env.Type = t
	return env, nil
}

func (d *Dispatcher) Supports(category domain.Category, t domain.EmailType) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[category][t]
	return ok
}

// Routes lists every registered route sorted by category and type.
func (d *Dispatcher) Routes() []Route {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []Route
	for c, types := range d.routes {
		for t, e := range types {
			out = append(out, Route{Category: c, Type: t, Target: e.target})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Type < out[j].Type
	})
	return out
}
