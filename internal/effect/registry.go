package effect

import (
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/ags/internal/world"
)

// Handler applies one atom to a working copy of the world. It mutates only
// the records the atom targets and describes what it changed. Handlers
// never publish events and never consult visibility.
type Handler func(w *world.World, a Atom, p Policy) ([]world.Change, error)

// Registry maps atom kinds to handlers. Adding a kind means registering one
// handler; the executor dispatches through the registry and never names
// kinds itself.
//
// Registration happens at startup; Apply is safe for concurrent use with
// other Apply calls.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Kind]Handler
}

// NewRegistry returns a registry with every built-in kind registered.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	for kind, h := range builtins() {
		r.handlers[kind] = h
	}
	return r
}

// NewEmptyRegistry returns a registry with no handlers.
func NewEmptyRegistry() *Registry {
	return &Registry{handlers: make(map[Kind]Handler)}
}

func builtins() map[Kind]Handler {
	return map[Kind]Handler{
		KindHP:           applyHP,
		KindResource:     applyResource,
		KindGuard:        applyGuard,
		KindMark:         applyMark,
		KindInventory:    applyInventory,
		KindPosition:     applyPosition,
		KindExit:         applyExit,
		KindTag:          applyTag,
		KindReveal:       applyReveal,
		KindVisibility:   applyVisibility,
		KindRelationship: applyRelationship,
		KindClock:        applyClock,
		KindTurn:         applyTurn,
		KindSchedule:     applySchedule,
		KindChoice:       applyChoice,
		KindSpawn:        applySpawn,
		KindRemove:       applyRemove,
	}
}

// Register adds a handler for a new kind. Registering a kind twice is an
// error; use Replace to override a built-in deliberately.
func (r *Registry) Register(kind Kind, h Handler) error {
	if kind == "" || h == nil {
		return fmt.Errorf("register effect kind: kind and handler are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[kind]; exists {
		return fmt.Errorf("effect kind %q already registered", kind)
	}
	r.handlers[kind] = h
	return nil
}

// Replace installs h for kind, overriding any existing handler.
func (r *Registry) Replace(kind Kind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[kind]
	return ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Apply dispatches a to its handler.
func (r *Registry) Apply(w *world.World, a Atom, p Policy) ([]world.Change, error) {
	r.mu.RLock()
	h, ok := r.handlers[a.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fail(ErrCodeUnknownKind, a, "no handler registered for kind %q", a.Kind)
	}
	return h(w, a, p)
}
