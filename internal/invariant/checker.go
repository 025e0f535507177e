package invariant

import (
	"fmt"
	"slices"

	"github.com/roach88/ags/internal/visibility"
	"github.com/roach88/ags/internal/world"
)

// DefaultAuditSample is the number of gm_only records the leak audit
// redacts per player observer.
const DefaultAuditSample = 8

// Options configures optional rules.
type Options struct {
	// ExitSymmetry requires every exit A->B to have a matching B->A unless
	// it is marked one-way.
	ExitSymmetry bool
	// AuditSample bounds the gm_only leak audit. Zero disables it.
	AuditSample int
	// Redaction is the policy the audit redacts with.
	Redaction visibility.Policy
}

// DefaultOptions enables the audit with the default sample.
func DefaultOptions() Options {
	return Options{AuditSample: DefaultAuditSample}
}

// Checker evaluates every rule against a world.
type Checker struct {
	opts   Options
	redact func(observer string, rec world.Record, w *world.World) visibility.Projection
}

// NewChecker returns a checker with the given options.
func NewChecker(opts Options) *Checker {
	return &Checker{opts: opts, redact: visibility.NewRedactor(opts.Redaction).Redact}
}

// Check returns every violation in w, in a deterministic order. It never
// mutates w.
func (c *Checker) Check(w *world.World) []Violation {
	var vs []Violation
	add := func(rule, record, format string, args ...any) {
		vs = append(vs, Violation{Rule: rule, Record: record, Message: fmt.Sprintf(format, args...)})
	}

	c.checkEntities(w, add)
	c.checkZones(w, add)
	c.checkRelationships(w, add)
	c.checkClocks(w, add)
	c.checkScene(w, add)
	if c.opts.AuditSample > 0 {
		c.auditGMOnly(w, add)
	}
	return vs
}

type addFunc func(rule, record, format string, args ...any)

func checkMeta(id string, m world.Meta, add addFunc) {
	if !m.Visibility.Valid() {
		add(RuleVisibilityLevel, id, "unknown visibility %q", m.Visibility)
	}
}

func (c *Checker) checkEntities(w *world.World, add addFunc) {
	for _, id := range w.EntityIDs() {
		e := w.Entities[id]
		checkMeta(id, e.Meta, add)
		if e.Located() {
			if _, ok := w.Zones[e.Zone]; !ok {
				add(RuleEntityZone, id, "zone %q does not exist", e.Zone)
			}
		}
		if e.Kind == world.KindItem && (e.Stats != nil || len(e.Inventory) > 0) {
			add(RuleItemStats, id, "items carry neither stats nor inventory")
		}
		if s := e.Stats; s != nil {
			if s.HP < 0 || s.HP > s.MaxHP {
				add(RuleHPRange, id, "hp %d outside [0, %d]", s.HP, s.MaxHP)
			}
			if s.Guard < 0 {
				add(RuleGuardRange, id, "guard %d is negative", s.Guard)
			}
			if s.GuardDuration < 0 {
				add(RuleGuardRange, id, "guard duration %d is negative", s.GuardDuration)
			}
			for _, name := range sortedKeys(s.Resources) {
				r := s.Resources[name]
				if r.Current < 0 || r.Current > r.Max {
					add(RuleResourceRange, id, "%s %d outside [0, %d]", name, r.Current, r.Max)
				}
			}
		}
		for _, item := range sortedKeys(e.Inventory) {
			target, ok := w.Entities[item]
			switch {
			case !ok:
				add(RuleInventoryItem, id, "inventory references missing item %q", item)
			case target.Kind != world.KindItem:
				add(RuleInventoryItem, id, "inventory references %s %q", target.Kind, item)
			}
			if e.Inventory[item].Charges < 0 {
				add(RuleInventoryItem, id, "%q has negative charges", item)
			}
		}
	}
}

func (c *Checker) checkZones(w *world.World, add addFunc) {
	for _, id := range w.ZoneIDs() {
		z := w.Zones[id]
		checkMeta(id, z.Meta, add)
		for _, x := range z.Exits {
			dest, ok := w.Zones[x.To]
			if !ok {
				add(RuleExitTarget, id, "exit to missing zone %q", x.To)
				continue
			}
			if c.opts.ExitSymmetry && !x.OneWay && dest.ExitTo(id) < 0 {
				add(RuleExitSymmetry, id, "exit to %q has no way back", x.To)
			}
		}
	}
}

func (c *Checker) checkRelationships(w *world.World, add addFunc) {
	for _, id := range w.RelationshipIDs() {
		r := w.Relationships[id]
		checkMeta(id, r.Meta, add)
		if r.Value < world.MinRelValue || r.Value > world.MaxRelValue {
			add(RuleRelationshipRange, id, "value %d outside [%d, %d]", r.Value, world.MinRelValue, world.MaxRelValue)
		}
		if r.Tombstoned {
			continue
		}
		for _, end := range []string{r.Source, r.Target} {
			if _, ok := w.Entities[end]; !ok {
				add(RuleDanglingReference, id, "live edge points at missing entity %q", end)
			}
		}
	}
}

func (c *Checker) checkClocks(w *world.World, add addFunc) {
	for _, id := range w.ClockIDs() {
		k := w.Clocks[id]
		checkMeta(id, k.Meta, add)
		if k.Value < 0 || k.Value > k.Max {
			add(RuleClockRange, id, "value %d outside [0, %d]", k.Value, k.Max)
		}
	}
}

func (c *Checker) checkScene(w *world.World, add addFunc) {
	s := &w.Scene
	if s.Round < 1 {
		add(RuleScene, world.SceneID, "round %d is before the first", s.Round)
	}
	if len(s.TurnOrder) > 0 && (s.TurnIndex < 0 || s.TurnIndex >= len(s.TurnOrder)) {
		add(RuleScene, world.SceneID, "turn index %d outside turn order of %d", s.TurnIndex, len(s.TurnOrder))
	}
	seen := make(map[string]bool, len(s.TurnOrder))
	for _, id := range s.TurnOrder {
		if seen[id] {
			add(RuleTurnOrder, world.SceneID, "%q appears twice", id)
		}
		seen[id] = true
		if _, ok := w.Entities[id]; !ok {
			add(RuleTurnOrder, world.SceneID, "missing entity %q", id)
		}
	}
	for _, id := range s.Clocks {
		if _, ok := w.Clocks[id]; !ok {
			add(RuleSceneClock, world.SceneID, "active clock %q does not exist", id)
		}
	}
}

// auditGMOnly redacts a sample of gm_only records for every player
// character and flags any projection that comes back visible or carries
// the real name. The sample window rotates with the revision so repeated
// commits cover the whole set.
func (c *Checker) auditGMOnly(w *world.World, add addFunc) {
	var secret []world.Record
	for _, id := range w.EntityIDs() {
		if e := w.Entities[id]; e.Meta.GMOnly() {
			secret = append(secret, e)
		}
	}
	for _, id := range w.ZoneIDs() {
		if z := w.Zones[id]; z.Meta.GMOnly() {
			secret = append(secret, z)
		}
	}
	for _, id := range w.RelationshipIDs() {
		if r := w.Relationships[id]; r.Meta.GMOnly() {
			secret = append(secret, r)
		}
	}
	for _, id := range w.ClockIDs() {
		if k := w.Clocks[id]; k.Meta.GMOnly() {
			secret = append(secret, k)
		}
	}
	if len(secret) == 0 {
		return
	}

	n := min(c.opts.AuditSample, len(secret))
	start := int(w.Revision % int64(len(secret)))
	for _, observer := range w.EntityIDs() {
		if w.Entities[observer].Kind != world.KindPC {
			continue
		}
		for i := range n {
			rec := secret[(start+i)%len(secret)]
			p := c.redact(observer, rec, w)
			if p.Visible {
				add(RuleGMOnlyLeak, rec.RecordID(), "visible to %q", observer)
				continue
			}
			if name := recordName(rec); p.Name != visibility.Placeholder || len(p.Fields) > 0 || (name != "" && p.Name == name) {
				add(RuleGMOnlyLeak, rec.RecordID(), "real name reaches %q", observer)
			}
		}
	}
}

func recordName(rec world.Record) string {
	switch r := rec.(type) {
	case *world.Entity:
		return r.Name
	case *world.Zone:
		return r.Name
	case *world.Clock:
		return r.Name
	}
	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
