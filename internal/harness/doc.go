// Package harness runs conformance scenarios against a live pipeline.
//
// # Scenario Format
//
// Scenarios are YAML files. The pipeline comes either from a config file
// (resolved relative to the scenario) or from an inline stage list:
//
//	name: move_keeps_confidence
//	description: "A frame moved out and back keeps its object"
//	stages:
//	  - {name: in, kind: frame}
//	  - {name: out, kind: frame}
//	steps:
//	  - op: admit
//	    stage: in
//	    as: f1
//	    frame:
//	      source: cam-1
//	      objects:
//	        - {id: 1, namespace: detector, label: car, box: [10, 10, 4, 4], confidence: 0.9}
//	  - op: move
//	    handle: f1
//	    stage: out
//	  - op: apply
//	    handle: "999"
//	    expect: {error: UNKNOWN_HANDLE}
//	assertions:
//	  - type: in_stage
//	    handle: f1
//	    stage: out
//	  - type: object_confidence
//	    handle: f1
//	    object: 1
//	    confidence: 0.9
//
// Steps name the handles they produce with as (or as_each for unpack), and
// later steps refer to them by that name. A handle that is not a bound name
// but parses as an integer is used as is, which is how scenarios address
// handles that were never admitted.
//
// # Operations
//
//   - admit: insert a frame built from frame into stage
//   - move: move handle (optionally a subset of its members) or handles to stage
//   - pack: pack handles into a new batch in stage
//   - unpack: dissolve batch handle into stage
//   - update: queue one update record on handle (or its member)
//   - apply, clear: replay or discard the pending updates of handle
//   - delete: evict handle
//
// A step without expect must succeed. expect.error names the error code the
// step must fail with; expect.changed checks the result of apply and clear.
//
// # Assertion Types
//
//   - event_count: the event type occurs exactly count times
//   - event_order: the first occurrences of events appear in this order
//   - event_contains: an event of this type for handle, optionally from/to
//   - stage_len: the stage holds count entities
//   - in_stage: handle sits in stage
//   - unknown_handle: handle is in no stage
//   - object_confidence: the confidence of object (absent means unset)
//   - pending_updates: handle has count queued records
//
// # Deterministic Runs
//
// Each scenario gets a fresh pipeline with handles counting from 1, a
// testutil.DeterministicClock for event timestamps and sequential frame
// UUIDs, so the rendered trace is byte-identical across runs and can be
// compared against a golden file.
package harness
