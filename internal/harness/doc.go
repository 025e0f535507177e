// Package harness runs YAML game scenarios against a real engine.
//
// # Scenario Format
//
//	name: hp_overkill_clamp
//	description: "What this scenario validates"
//	world: keep              # "keep" or a world file relative to the scenario
//	policy:                  # optional policy fields, as in the CUE policy file
//	  bounds: clamp
//	seed: 42                 # dice seed for every step without its own
//	steps:
//	  - name: overkill
//	    actor: pc.arin
//	    effects:
//	      - {kind: hp, target: npc.guard.01, delta: -999}
//	    expect:
//	      committed: true
//	      events: [hp_changed, tag_added, guard_changed]
//	assertions:
//	  - type: world_field
//	    path: /entities/npc.guard.01/stats/hp
//	    equals: 0
//
// # Assertion Types
//
//   - world_field: the value at a JSON pointer into the final world
//     document equals the expected value, or is absent
//   - disposition: how source regards target (hostile, neutral, ally)
//   - visible: whether observer can perceive record
//   - trace_contains: an event was published, optionally for a target
//   - trace_order: events were published in this relative order
//   - trace_count: an event was published exactly count times
//   - standing_violations: the rules of the standing violations, in order
//   - replay: the turn log replays onto the starting world and reproduces
//     the final document hash
//
// # Deterministic Testing
//
// Every scenario runs on a fresh engine with sequential turn ids, the
// testutil deterministic clock and fixed dice seeds, so the trace is
// stable enough for golden file comparison.
package harness
