package converters

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Registry maps format names and aliases to converters.
//
// Detection checks converters in registration order, so register more
// specific formats first (piplock before pip).
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]Converter
	aliases map[string]string
	order   []string
}

// NewRegistry creates a Registry holding convs.
func NewRegistry(convs ...Converter) *Registry {
	r := &Registry{
		byName:  make(map[string]Converter),
		aliases: make(map[string]string),
	}
	for _, c := range convs {
		r.Register(c)
	}
	return r
}

// Register adds c under its Name and any extra aliases. Registering a name
// twice replaces the earlier converter.
func (r *Registry) Register(c Converter, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := c.Name()
	if _, ok := r.byName[name]; !ok {
		r.order = append(r.order, name)
	}
	r.byName[name] = c
	for _, a := range aliases {
		r.aliases[strings.ToLower(a)] = name
	}
}

// Get returns the converter registered under name or one of its aliases.
func (r *Registry) Get(name string) (Converter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := r.aliases[key]; ok {
		key = alias
	}
	if c, ok := r.byName[key]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
}

// Detect finds the first converter that supports path's basename.
func (r *Registry) Detect(path string) (Converter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	base := filepath.Base(path)
	for _, name := range r.order {
		if c := r.byName[name]; c.Supports(base) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, base)
}

// Names returns the registered format names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := slices.Clone(r.order)
	slices.Sort(out)
	return out
}
