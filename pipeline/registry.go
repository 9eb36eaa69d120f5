package pipeline

import (
	"fmt"
	"sync"
)

// TransformFunc is a named transform registered by a schema author,
// looked up by the `transform(name)` custom item form.
type TransformFunc func(ctx Ctx) (Ctx, error)

// ValidatorFunc is a named validator registered by a schema author, looked
// up by the `validate(name)` custom item form. It reports an error
// (typically via newValidationError) rather than rebinding ctx.
type ValidatorFunc func(ctx Ctx) error

// CallbackFunc is a named callback registered by a schema author, looked
// up by the `callback(name)` custom item form. Callbacks are the
// engine's sanctioned boundary for host-side I/O (sending an email,
// calling an external service) and must be idempotent to be safely
// retried, per the concurrency model's cancellation policy.
type CallbackFunc func(ctx Ctx) (Ctx, error)

// CompareFunc is a named compare function registered by a schema author,
// looked up by the `compare(name)` custom item form; it receives the
// object's previous and new values for a field and may return an error to
// fail the pipeline (e.g. enforcing a monotonic counter).
type CompareFunc func(ctx Ctx, oldValue, newValue any) error

// Registry is the process-wide, frozen-after-startup lookup table for the
// four named custom item forms. It is populated once during schema
// compilation and never written to again; per the concurrency model this
// lets every request read it without synchronization once Freeze has been
// called.
type Registry struct {
	mu         sync.Mutex
	frozen     bool
	transforms map[string]TransformFunc
	validators map[string]ValidatorFunc
	callbacks  map[string]CallbackFunc
	compares   map[string]CompareFunc
}

// NewRegistry returns an empty, unfrozen Registry.
func NewRegistry() *Registry {
	return &Registry{
		transforms: make(map[string]TransformFunc),
		validators: make(map[string]ValidatorFunc),
		callbacks:  make(map[string]CallbackFunc),
		compares:   make(map[string]CompareFunc),
	}
}

func (r *Registry) checkMutable() {
	if r.frozen {
		panic("pipeline: registry is frozen; custom items must be registered before the first request")
	}
}

// RegisterTransform adds a named transform. Panics if called after Freeze.
func (r *Registry) RegisterTransform(name string, fn TransformFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkMutable()
	r.transforms[name] = fn
}

// RegisterValidator adds a named validator. Panics if called after Freeze.
func (r *Registry) RegisterValidator(name string, fn ValidatorFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkMutable()
	r.validators[name] = fn
}

// RegisterCallback adds a named callback. Panics if called after Freeze.
func (r *Registry) RegisterCallback(name string, fn CallbackFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkMutable()
	r.callbacks[name] = fn
}

// RegisterCompare adds a named compare function. Panics if called after Freeze.
func (r *Registry) RegisterCompare(name string, fn CompareFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkMutable()
	r.compares[name] = fn
}

// Freeze locks the registry against further registration. Schema
// compilation calls this exactly once, before the first request is
// served.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

func (r *Registry) transform(name string) (TransformFunc, error) {
	fn, ok := r.transforms[name]
	if !ok {
		return nil, fmt.Errorf("pipeline: no transform registered with name %q", name)
	}
	return fn, nil
}

func (r *Registry) validator(name string) (ValidatorFunc, error) {
	fn, ok := r.validators[name]
	if !ok {
		return nil, fmt.Errorf("pipeline: no validator registered with name %q", name)
	}
	return fn, nil
}

func (r *Registry) callback(name string) (CallbackFunc, error) {
	fn, ok := r.callbacks[name]
	if !ok {
		return nil, fmt.Errorf("pipeline: no callback registered with name %q", name)
	}
	return fn, nil
}

func (r *Registry) compare(name string) (CompareFunc, error) {
	fn, ok := r.compares[name]
	if !ok {
		return nil, fmt.Errorf("pipeline: no compare function registered with name %q", name)
	}
	return fn, nil
}
