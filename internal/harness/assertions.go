package harness

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/ags/internal/engine"
	"github.com/roach88/ags/internal/ir"
	"github.com/roach88/ags/internal/visibility"
	"github.com/roach88/ags/internal/world"
)

func (r *run) assert(ctx context.Context, a Assertion, result *Result) error {
	w := r.engine.Current()
	switch a.Type {
	case AssertWorldField:
		return assertWorldField(w, a)
	case AssertDisposition:
		got := w.Disposition(a.Source, a.Target)
		if want := fmt.Sprint(a.Equals); string(got) != want {
			return fmt.Errorf("%s regards %s as %s, want %s", a.Source, a.Target, got, want)
		}
	case AssertVisible:
		return assertVisible(w, a)
	case AssertTraceContains:
		for _, ev := range result.Trace {
			if ev.Event == a.Event && (a.Target == "" || ev.Target == a.Target) {
				return nil
			}
		}
		return fmt.Errorf("no %s event for %q in %v", a.Event, a.Target, result.Events())
	case AssertTraceOrder:
		return assertOrder(result.Events(), a.Events)
	case AssertTraceCount:
		n := 0
		for _, ev := range result.Trace {
			if ev.Event == a.Event {
				n++
			}
		}
		if n != *a.Count {
			return fmt.Errorf("%s published %d times, want %d", a.Event, n, *a.Count)
		}
	case AssertStandingViolations:
		rules := []string{}
		for _, v := range r.engine.StandingViolations() {
			rules = append(rules, v.Rule)
		}
		want := a.Rules
		if want == nil {
			want = []string{}
		}
		if !slices.Equal(rules, want) {
			return fmt.Errorf("standing violations %v, want %v", rules, want)
		}
	case AssertReplay:
		return r.assertReplay(ctx, w)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func assertWorldField(w *world.World, a Assertion) error {
	doc, err := w.Document()
	if err != nil {
		return err
	}
	got, found := lookupPointer(doc, a.Path)
	if a.Absent {
		if found {
			return fmt.Errorf("%s is present", a.Path)
		}
		return nil
	}
	if !found {
		return fmt.Errorf("%s is absent", a.Path)
	}
	want, err := ir.Encode(a.Equals)
	if err != nil {
		return fmt.Errorf("expected value: %w", err)
	}
	if !ir.Equal(got, want) {
		gotJSON, _ := ir.MarshalValue(got)
		wantJSON, _ := ir.MarshalValue(want)
		return fmt.Errorf("%s = %s, want %s", a.Path, gotJSON, wantJSON)
	}
	return nil
}

// lookupPointer resolves an RFC 6901 pointer.
func lookupPointer(doc ir.Value, pointer string) (ir.Value, bool) {
	if pointer == "" {
		return doc, true
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, false
	}
	cur := doc
	for _, tok := range strings.Split(pointer[1:], "/") {
		tok = strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
		switch v := cur.(type) {
		case ir.Object:
			next, ok := v[tok]
			if !ok {
				return nil, false
			}
			cur = next
		case ir.Array:
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(v) {
				return nil, false
			}
			cur = v[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func assertVisible(w *world.World, a Assertion) error {
	rec, err := w.Record(a.Record)
	if err != nil {
		return err
	}
	want := a.Equals.(bool)
	if got := visibility.CanObserve(a.Observer, rec, w); got != want {
		return fmt.Errorf("%s sees %s = %v, want %v", a.Observer, a.Record, got, want)
	}
	return nil
}

// assertOrder checks that want is a subsequence of got.
func assertOrder(got, want []string) error {
	i := 0
	for _, name := range got {
		if i < len(want) && name == want[i] {
			i++
		}
	}
	if i < len(want) {
		return fmt.Errorf("events %v do not contain %v in order", got, want)
	}
	return nil
}

func (r *run) assertReplay(ctx context.Context, w *world.World) error {
	want, err := w.Hash()
	if err != nil {
		return err
	}
	res, err := engine.Replay(ctx, r.start, r.turns, want, r.engineOptions()...)
	if err != nil {
		return err
	}
	if res.World.Revision != w.Revision {
		return fmt.Errorf("replayed to revision %d, want %d", res.World.Revision, w.Revision)
	}
	return nil
}
