package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/giantswarm/cacheserver/internal/fault"
)

// ErrUnknownModule is returned by Registry.New for an unregistered name.
const ErrUnknownModule = fault.Sentinel("unknown cache module")

// Factory creates an uninitialized engine.
type Factory func() Engine

// Registry maps module names to engine factories.
type Registry map[string]Factory

// New creates the engine registered under name.
func (r Registry) New(name string) (Engine, error) {
	f, ok := r[name]
	if !ok || f == nil {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownModule, name, strings.Join(r.Names(), ", "))
	}
	return f(), nil
}

// Names returns the registered module names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
