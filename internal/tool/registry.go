package tool

import "fmt"

// Registry is the ordered tool catalog. It is filled once at startup and
// only read afterwards, so it needs no locking.
type Registry struct {
	order    []string
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register appends a tool to the catalog. Names must be unique and non-empty.
func (r *Registry) Register(h Handler) error {
	name := h.Descriptor().Name
	if name == "" {
		return fmt.Errorf("register tool: empty name")
	}
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("register tool %q: already registered", name)
	}
	r.handlers[name] = h
	r.order = append(r.order, name)
	return nil
}

// MustRegister is Register for static catalogs; it panics on error.
func (r *Registry) MustRegister(handlers ...Handler) {
	for _, h := range handlers {
		if err := r.Register(h); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// List returns the descriptors in catalog order.
func (r *Registry) List() []Descriptor {
	defs := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.handlers[name].Descriptor())
	}
	return defs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.order)
}
