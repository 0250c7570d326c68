// Package store keeps a durable, append-only log of pipeline transitions in
// SQLite.
//
// Tables:
//   - runs: one row per pipeline process, with its stage layout
//   - transitions: one row per pipeline event, keyed by (run_id, seq)
//   - frame_snapshots: JSON snapshots of frames leaving the pipeline
//
// Ordering always uses seq, never the wall-clock columns, so reads are
// deterministic. Writes are idempotent on (run_id, seq).
//
// Recorder is the pipeline.EventSink that feeds the log. Emit only queues;
// a single goroutine running Recorder.Run performs every write.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
