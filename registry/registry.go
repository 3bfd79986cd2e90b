// Package registry tracks the module instances a script has loaded: one
// default module plus any number of named ones.
package registry

import (
	"sort"

	"github.com/wippyai/wasm-spectest/engine"
	"github.com/wippyai/wasm-spectest/errors"
)

// Registry maps script module names to engine handles. The zero value is
// not usable; call New.
type Registry struct {
	named map[string]engine.Handle
	def   engine.Handle
}

// New returns an empty registry with no default module.
func New() *Registry {
	return &Registry{named: make(map[string]engine.Handle)}
}

// Register records h under name. An empty name makes h the default module,
// replacing the previous one. Named entries are overwritten by later loads
// with the same name.
func (r *Registry) Register(name string, h engine.Handle) {
	if name == "" {
		r.def = h
		return
	}
	r.named[name] = h
}

// Resolve returns the handle for name, or the default module when name is
// empty.
func (r *Registry) Resolve(name string) (engine.Handle, error) {
	if name == "" {
		if r.def == engine.InvalidHandle {
			return engine.InvalidHandle, errors.UnknownModule("")
		}
		return r.def, nil
	}
	h, ok := r.named[name]
	if !ok {
		return engine.InvalidHandle, errors.UnknownModule(name)
	}
	return h, nil
}

// Default returns the default module handle, or InvalidHandle before any
// anonymous load.
func (r *Registry) Default() engine.Handle {
	return r.def
}

// Names returns the registered module names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.named))
	for name := range r.named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
