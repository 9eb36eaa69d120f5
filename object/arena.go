package object

import (
	"fmt"
	"sync"

	"github.com/syssam/keel/value"
)

// Arena is a per-request cache of already-hydrated objects keyed by
// (model, primary key), so that a relation walker expanding a deeply
// nested include (or a self-referential relation) resolves back to the
// same *Object instance instead of re-querying and re-allocating, per
// the Design Notes' cyclic-reference handling.
//
// An Arena is not safe for use beyond a single request. Package engine
// does not create or consult one.
type Arena struct {
	mu      sync.Mutex
	objects map[string]*Object
}

// NewArena returns an empty Arena.
func NewArena() *Arena {
	return &Arena{objects: make(map[string]*Object)}
}

func arenaKey(model string, pk value.Value) string {
	return fmt.Sprintf("%s#%s#%v", model, pk.Kind(), pk)
}

// Get returns the cached object for (model, pk), if one was already
// placed in the arena during this request.
func (a *Arena) Get(model string, pk value.Value) (*Object, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	o, ok := a.objects[arenaKey(model, pk)]
	return o, ok
}

// Put registers obj under (model, pk) for later cycle resolution.
func (a *Arena) Put(model string, pk value.Value, obj *Object) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[arenaKey(model, pk)] = obj
}
