package store

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/framepipe/internal/pipeline"
)

// Recorder is a pipeline.EventSink that writes every event to the store.
//
// Emit only queues. Run, on a single goroutine, performs the writes in
// arrival order; a failed write is logged and skipped.
type Recorder struct {
	store  *Store
	runID  string
	queue  *eventQueue
	logger *slog.Logger

	written atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// RecorderStats counts what happened to emitted events.
type RecorderStats struct {
	Written int64 `json:"written"`
	Failed  int64 `json:"failed"`
	Dropped int64 `json:"dropped"`
	Queued  int   `json:"queued"`
}

// NewRecorder creates a recorder writing to the log of runID. The run
// should already be registered with WriteRun.
func NewRecorder(s *Store, runID string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:  s,
		runID:  runID,
		queue:  newEventQueue(),
		logger: logger,
	}
}

// Emit queues e. Events emitted after Close are counted as dropped.
func (r *Recorder) Emit(e pipeline.Event) {
	if !r.queue.Enqueue(e) {
		r.dropped.Add(1)
	}
}

// Run writes queued events until Close is called and the queue is drained,
// or until ctx is cancelled. On cancellation the queue is closed and what is
// already queued is still written, without the cancelled context.
func (r *Recorder) Run(ctx context.Context) error {
	r.logger.Info("recorder starting", "run_id", r.runID)

	for {
		if ctx.Err() != nil {
			return r.stop(ctx)
		}
		if e, ok := r.queue.TryDequeue(); ok {
			r.write(ctx, e)
			continue
		}

		select {
		case <-ctx.Done():
			return r.stop(ctx)

		case <-r.queue.Wait():
			if r.queue.drained() {
				r.logger.Info("recorder stopping: closed", "run_id", r.runID, "written", r.written.Load())
				return nil
			}
		}
	}
}

func (r *Recorder) stop(ctx context.Context) error {
	r.queue.Close()
	r.flush(context.WithoutCancel(ctx))
	r.logger.Info("recorder stopping: context cancelled", "run_id", r.runID, "written", r.written.Load())
	return ctx.Err()
}

func (r *Recorder) flush(ctx context.Context) {
	for {
		e, ok := r.queue.TryDequeue()
		if !ok {
			return
		}
		r.write(ctx, e)
	}
}

func (r *Recorder) write(ctx context.Context, e pipeline.Event) {
	if err := r.store.WriteTransition(ctx, r.runID, e); err != nil {
		r.failed.Add(1)
		r.logger.Error("transition write failed",
			"run_id", r.runID,
			"seq", e.Seq,
			"type", string(e.Type),
			"handle", int64(e.Handle),
			"error", err,
		)
		return
	}
	r.written.Add(1)
}

// Close stops accepting events. Run returns once the queue is drained.
func (r *Recorder) Close() {
	r.queue.Close()
}

// Stats samples the recorder's counters.
func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Written: r.written.Load(),
		Failed:  r.failed.Load(),
		Dropped: r.dropped.Load(),
		Queued:  r.queue.Len(),
	}
}
