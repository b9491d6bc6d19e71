package provider

import (
	"sort"
	"sync"
)

// Constructor builds a provider instance from its configuration.
type Constructor func(cfg Config) (Provider, error)

// Registration describes a provider that can be instantiated by name.
type Registration struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"displayName"`
	KeyOptional bool        `json:"keyOptional"`
	New         Constructor `json:"-"`
}

// VendorRegistration returns a registration whose constructor builds a
// UnifiedProvider for v.
func VendorRegistration(v Vendor) Registration {
	return Registration{
		Name:        v.Name,
		DisplayName: v.DisplayName,
		KeyOptional: v.KeyOptional,
		New: func(cfg Config) (Provider, error) {
			return NewUnifiedProvider(v, cfg)
		},
	}
}

// Registry maps provider names to registrations and caches the last
// instance created for each name. It is safe for concurrent use.
type Registry struct {
	mu            sync.RWMutex
	registrations map[string]Registration
	instances     map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		registrations: make(map[string]Registration),
		instances:     make(map[string]Provider),
	}
}

// NewDefaultRegistry creates a registry holding every built-in vendor.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterVendors(BuiltinVendors()...)
	return r
}

// Register adds or replaces a registration.
func (r *Registry) Register(reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations[reg.Name] = reg
}

// RegisterVendors registers a UnifiedProvider for each vendor record.
func (r *Registry) RegisterVendors(vendors ...Vendor) {
	for _, v := range vendors {
		r.Register(VendorRegistration(v))
	}
}

// Remove drops a registration and any cached instance.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.registrations, name)
	delete(r.instances, name)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.registrations[name]
	return ok
}

// Registration returns the registration for name.
func (r *Registry) Registration(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.registrations[name]
	return reg, ok
}

// Registrations returns all registrations sorted by name.
func (r *Registry) Registrations() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Registration, 0, len(r.registrations))
	for _, reg := range r.registrations {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	regs := r.Registrations()
	names := make([]string, len(regs))
	for i, reg := range regs {
		names[i] = reg.Name
	}
	return names
}

// Create instantiates the named provider and caches the instance,
// replacing any earlier one.
func (r *Registry) Create(name string, cfg Config) (Provider, error) {
	reg, ok := r.Registration(name)
	if !ok {
		return nil, &UnknownProviderError{Name: name}
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	p, err := reg.New(cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.instances[name] = p
	r.mu.Unlock()
	return p, nil
}

// Get returns the cached instance for name, if one was created.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.instances[name]
	return p, ok
}
