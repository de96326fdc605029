package attio

import "fmt"

// Registry holds one adapter per local model, ordered by first appearance.
// It is immutable once built, so lookups need no locking.
type Registry struct {
	order    []string
	byModel  map[string]Adapter
	byObject map[string]Adapter
}

// NewRegistry registers builtins, then overrides. An override whose local model matches an
// earlier adapter replaces it entirely, keeping its position. Two adapters claiming the same
// external object fail with ErrDuplicateExternalObject.
func NewRegistry(builtins []Adapter, overrides ...Adapter) (*Registry, error) {
	r := &Registry{
		byModel:  make(map[string]Adapter),
		byObject: make(map[string]Adapter),
	}

	for _, a := range append(append([]Adapter(nil), builtins...), overrides...) {
		meta := a.Meta()
		if meta.LocalModel == "" || meta.ExternalObject == "" {
			return nil, fmt.Errorf("adapter %T: local model and external object are required", a)
		}
		if _, exists := r.byModel[meta.LocalModel]; !exists {
			r.order = append(r.order, meta.LocalModel)
		}
		r.byModel[meta.LocalModel] = a
	}

	for _, model := range r.order {
		a := r.byModel[model]
		slug := a.Meta().ExternalObject
		if other, taken := r.byObject[slug]; taken {
			return nil, fmt.Errorf("%w: %q claimed by %s and %s", ErrDuplicateExternalObject, slug, other.Meta().LocalModel, model)
		}
		r.byObject[slug] = a
	}

	return r, nil
}

// MustNewRegistry is NewRegistry for static adapter sets. Panics on error.
func MustNewRegistry(builtins []Adapter, overrides ...Adapter) *Registry {
	r, err := NewRegistry(builtins, overrides...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Resolve(localModel string) (Adapter, bool) {
	a, ok := r.byModel[localModel]
	return a, ok
}

func (r *Registry) ResolveByExternalObject(slug string) (Adapter, bool) {
	a, ok := r.byObject[slug]
	return a, ok
}

// Adapters returns every adapter in registration order.
func (r *Registry) Adapters() []Adapter {
	out := make([]Adapter, 0, len(r.order))
	for _, model := range r.order {
		out = append(out, r.byModel[model])
	}
	return out
}

// ParentsOf returns the adapters that list localModel under RelatedModels.
func (r *Registry) ParentsOf(localModel string) []Adapter {
	var parents []Adapter
	for _, a := range r.Adapters() {
		if _, ok := a.Meta().RelatedModels[localModel]; ok {
			parents = append(parents, a)
		}
	}
	return parents
}
