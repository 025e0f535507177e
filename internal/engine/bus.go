package engine

import (
	"log/slog"
	"sync"

	"github.com/roach88/ags/internal/effect"
	"github.com/roach88/ags/internal/world"
)

// Event is one committed change as seen by subscribers and rules.
type Event struct {
	Change   world.Change `json:"change"`
	TurnID   string       `json:"turn_id"`
	Revision int64        `json:"revision"`
	Reaction bool         `json:"reaction,omitempty"`
}

// Name returns the event name, such as "hp_changed".
func (e Event) Name() string {
	return e.Change.Event
}

// Subscriber observes committed events. w is the world the events were
// committed to; subscribers must treat it as read-only.
type Subscriber func(ev Event, w *world.World)

// Rule derives follow-up effects from a committed event.
type Rule interface {
	Name() string
	React(ev Event, w *world.World) []effect.Atom
}

type ruleFunc struct {
	name string
	fn   func(Event, *world.World) []effect.Atom
}

func (r ruleFunc) Name() string { return r.name }

func (r ruleFunc) React(ev Event, w *world.World) []effect.Atom { return r.fn(ev, w) }

// NewRule adapts a function to the Rule interface.
func NewRule(name string, fn func(ev Event, w *world.World) []effect.Atom) Rule {
	return ruleFunc{name: name, fn: fn}
}

// Proposal is one effect a rule wants applied.
type Proposal struct {
	Rule string
	Atom effect.Atom
}

// Bus fans committed events out to subscribers and reaction rules.
//
// Subscribers and rules run in registration order on the commit path, so
// they must be quick and must not call back into Apply.
type Bus struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	rules       []Rule
	logger      *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers an observer.
func (b *Bus) Subscribe(fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, fn)
}

// AddRule registers a reaction rule.
func (b *Bus) AddRule(r Rule) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rules = append(b.rules, r)
}

// Rules returns the registered rule names in order.
func (b *Bus) Rules() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.rules))
	for _, r := range b.rules {
		names = append(names, r.Name())
	}
	return names
}

// Publish delivers events to every subscriber. A panicking subscriber is
// logged and skipped; the commit has already happened.
func (b *Bus) Publish(evs []Event, w *world.World) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, ev := range evs {
		for _, fn := range subs {
			b.deliver(fn, ev, w)
		}
	}
}

func (b *Bus) deliver(fn Subscriber, ev Event, w *world.World) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event subscriber panicked",
				"event", ev.Name(),
				"target", ev.Change.Target,
				"turn_id", ev.TurnID,
				"panic", r,
			)
		}
	}()
	fn(ev, w)
}

// Propose asks every rule about every event, in event order then rule
// order.
func (b *Bus) Propose(evs []Event, w *world.World) []Proposal {
	b.mu.RLock()
	rules := b.rules
	b.mu.RUnlock()

	var out []Proposal
	for _, ev := range evs {
		for _, r := range rules {
			for _, a := range r.React(ev, w) {
				out = append(out, Proposal{Rule: r.Name(), Atom: a})
			}
		}
	}
	return out
}
