package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/ags/internal/dice"
	"github.com/roach88/ags/internal/effect"
	"github.com/roach88/ags/internal/invariant"
	"github.com/roach88/ags/internal/world"
)

const (
	// DefaultLogLimit bounds the scene log kept inside the world.
	DefaultLogLimit = 50

	// DefaultMaxReactionEffects bounds one reaction batch.
	DefaultMaxReactionEffects = 32
)

// TurnListener is told about every batch the engine runs, committed or
// not. w is the committed world after the batch.
//
// Listeners run on the commit path under the writer lock. They must not
// block and must not call Apply.
type TurnListener func(entry world.LogEntry, w *world.World)

// Engine owns one world and is its only writer.
//
// Thread-safety model:
//   - Apply(), Reset(): safe from any goroutine; serialized on the commit mutex
//   - Current(), StandingViolations(): lock-free, safe from any goroutine
//   - Subscribe(), AddRule(), OnTurn(): call during setup, before Apply
//
// INVARIANTS:
//   - a World reachable through Current() is never mutated
//   - revisions strictly increase across commits and resets
//   - reaction batches never trigger rules
type Engine struct {
	mu       sync.Mutex
	current  atomic.Pointer[world.World]
	standing atomic.Pointer[[]invariant.Violation]

	registry      *effect.Registry
	checker       *invariant.Checker
	bus           *Bus
	clock         *RevisionClock
	turnIDs       IDGenerator
	now           func() time.Time
	seeds         func() (int64, error)
	cycleDetector *CycleDetector
	listeners     []TurnListener
	logger        *slog.Logger

	bounds             effect.Bounds
	logLimit           int
	maxReactionEffects int
	rules              []Rule
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithRegistry sets the effect registry. Default: effect.NewRegistry().
func WithRegistry(r *effect.Registry) EngineOption {
	return func(e *Engine) { e.registry = r }
}

// WithChecker sets the invariant checker.
// Default: invariant.NewChecker(invariant.DefaultOptions()).
func WithChecker(c *invariant.Checker) EngineOption {
	return func(e *Engine) { e.checker = c }
}

// WithBounds selects clamp or reject handling of out-of-range values.
func WithBounds(b effect.Bounds) EngineOption {
	return func(e *Engine) { e.bounds = b }
}

// WithIDGenerator sets the turn id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) { e.turnIDs = g }
}

// WithNow sets the wall clock used for audit timestamps.
func WithNow(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithSeedSource sets where batch seeds come from when a batch carries
// none. Default: dice.NewSeed (crypto/rand).
func WithSeedSource(fn func() (int64, error)) EngineOption {
	return func(e *Engine) { e.seeds = fn }
}

// WithLogLimit bounds the scene log. Zero keeps no log entries in the world.
func WithLogLimit(n int) EngineOption {
	return func(e *Engine) { e.logLimit = n }
}

// WithMaxReactionEffects bounds a reaction batch.
func WithMaxReactionEffects(n int) EngineOption {
	return func(e *Engine) { e.maxReactionEffects = n }
}

// WithRules replaces the built-in reaction rules.
func WithRules(rules ...Rule) EngineOption {
	return func(e *Engine) { e.rules = rules }
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over a copy of w. Violations already present in w
// are kept as standing violations rather than refused, so that a damaged
// world can still be loaded and repaired.
func New(w *world.World, opts ...EngineOption) (*Engine, error) {
	if w == nil {
		return nil, newRuntimeError(ErrCodeNoWorld, "", "engine needs a world")
	}

	e := &Engine{
		registry:           effect.NewRegistry(),
		checker:            invariant.NewChecker(invariant.DefaultOptions()),
		turnIDs:            UUIDv7Generator{},
		now:                time.Now,
		seeds:              dice.NewSeed,
		cycleDetector:      NewCycleDetector(),
		logger:             slog.Default(),
		bounds:             effect.BoundsClamp,
		logLimit:           DefaultLogLimit,
		maxReactionEffects: DefaultMaxReactionEffects,
		rules:              DefaultRules(DefaultFearGuardPenalty),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.bus = NewBus(e.logger)
	for _, r := range e.rules {
		e.bus.AddRule(e.bindRule(r))
	}

	start := w.Clone()
	e.clock = NewRevisionClock(start.Revision)
	e.current.Store(start)

	standing := e.checker.Check(start)
	e.setStanding(standing)
	if len(standing) > 0 {
		e.logger.Warn("world loaded with standing violations",
			"world", start.ID,
			"count", len(standing),
			"first", standing[0].String(),
		)
	}
	return e, nil
}

// Current returns the last committed world. Callers must not mutate it.
func (e *Engine) Current() *world.World {
	return e.current.Load()
}

// StandingViolations returns the violations committed by non-transactional
// batches (or present at load) that have not been repaired.
func (e *Engine) StandingViolations() []invariant.Violation {
	if vs := e.standing.Load(); vs != nil {
		return *vs
	}
	return nil
}

func (e *Engine) setStanding(vs []invariant.Violation) {
	e.standing.Store(&vs)
}

// Subscribe registers an event observer, such as a projection cache.
func (e *Engine) Subscribe(fn Subscriber) {
	e.bus.Subscribe(fn)
}

// Invalidator drops derived state a committed change may have made stale.
type Invalidator interface {
	Invalidate(w *world.World, ch world.Change)
}

// SubscribeInvalidator feeds every published change, world resets
// included, to inv.
func (e *Engine) SubscribeInvalidator(inv Invalidator) {
	e.Subscribe(func(ev Event, w *world.World) { inv.Invalidate(w, ev.Change) })
}

// AddRule registers an additional reaction rule.
func (e *Engine) AddRule(r Rule) {
	e.bus.AddRule(e.bindRule(r))
}

// OnTurn registers a turn listener.
func (e *Engine) OnTurn(fn TurnListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Registry returns the effect registry, for registering new kinds.
func (e *Engine) Registry() *effect.Registry {
	return e.registry
}

// Bus returns the event bus.
func (e *Engine) Bus() *Bus {
	return e.bus
}

// Apply runs one batch and, if it commits, its reaction batch.
//
// The returned error is reserved for misuse (a context already cancelled
// before the batch started, an unavailable seed source). A batch that
// fails is reported in the Result with Committed false; the committed
// world is then untouched.
//
// There is no cancellation once a batch starts: it runs to commit or
// rollback.
func (e *Engine) Apply(ctx context.Context, b Batch) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("apply batch: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p := pass{batch: b, turnID: b.TurnID, at: b.At}
	if p.turnID == "" {
		p.turnID = e.turnIDs.Generate()
	}
	if b.Seed != nil {
		p.seed = *b.Seed
	} else {
		seed, err := e.seeds()
		if err != nil {
			return nil, fmt.Errorf("apply batch %s: %w", p.turnID, err)
		}
		p.seed = seed
	}
	if p.at == "" {
		p.at = e.now().UTC().Format(time.RFC3339)
	}

	res := e.execute(p)
	if res.Committed {
		e.react(p, res)
	}
	return res, nil
}

// Reset replaces the committed world, as on a snapshot restore. The new
// world must pass the invariant checker. It gets the next revision and a
// world_reset event is published so derived state is dropped.
func (e *Engine) Reset(w *world.World) error {
	if w == nil {
		return newRuntimeError(ErrCodeNoWorld, "", "reset needs a world")
	}
	next := w.Clone()
	if vs := e.checker.Check(next); len(vs) > 0 {
		return fmt.Errorf("reset world %s: %w",
			next.ID, newRuntimeError(ErrCodeInvalidWorld, "", "%v", invariant.AsError(vs)))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next.Revision = e.clock.Next()
	e.current.Store(next)
	e.setStanding(nil)

	e.logger.Info("world reset",
		"world", next.ID,
		"revision", next.Revision,
		"round", next.Scene.Round,
	)
	e.bus.Publish([]Event{{
		Change:   world.Change{Event: world.EventWorldReset, Target: next.ID},
		Revision: next.Revision,
	}}, next)
	return nil
}

func (e *Engine) notify(entry world.LogEntry, w *world.World) {
	for _, fn := range e.listeners {
		fn(entry, w)
	}
}
