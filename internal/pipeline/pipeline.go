// Package pipeline implements the stage engine: a fixed, ordered set of
// stages holding frames and batches behind opaque handles.
//
// Concurrency model:
//   - Each stage has its own lock. An operation touching several stages
//     locks them in declaration order and releases them in reverse, so no
//     two operations can deadlock.
//   - The handle table has a separate leaf lock, never held while a stage
//     lock is being acquired.
//   - Handles are resolved optimistically: read the stage from the table,
//     lock it, and retry if the handle moved in between.
//
// No operation blocks on I/O. Events go to a non-blocking EventSink and
// tracing goes through a panic guard, so neither can fail an operation.
package pipeline

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/framepipe/internal/errs"
	"github.com/roach88/framepipe/internal/journal"
	"github.com/roach88/framepipe/internal/telemetry"
	"github.com/roach88/framepipe/internal/video"
)

// Pipeline owns its stages and every entity in them.
//
// Thread-safety: all methods are safe for concurrent use.
type Pipeline struct {
	name    string
	stages  []*stage
	byName  map[string]int
	handles *handleTable
	clock   *Clock
	tracer  telemetry.Tracer
	sink    EventSink
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithName labels the pipeline in logs and events.
func WithName(name string) Option {
	return func(p *Pipeline) { p.name = name }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithTracer sets the tracer. Default: telemetry.Noop.
func WithTracer(t telemetry.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithEventSink sets the destination for transition events.
func WithEventSink(s EventSink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithClock sets the event sequence clock.
func WithClock(c *Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithNow overrides the wall clock used for event timestamps.
func WithNow(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline with the given stages. Stage order is fixed here
// and defines the lock order.
//
// Returns INVALID_ARGUMENT for an empty stage list or name and
// DUPLICATE_STAGE when a name repeats.
func New(stages []StageConfig, opts ...Option) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, errs.New(errs.CodeInvalidArgument, "pipeline needs at least one stage")
	}
	p := &Pipeline{
		name:    "pipeline",
		byName:  make(map[string]int, len(stages)),
		handles: newHandleTable(),
		clock:   NewClock(),
		tracer:  telemetry.Noop{},
		sink:    discardSink{},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for i, sc := range stages {
		if sc.Name == "" {
			return nil, errs.New(errs.CodeInvalidArgument, "stage %d has no name", i)
		}
		if sc.Kind != FramePayload && sc.Kind != BatchPayload {
			return nil, errs.New(errs.CodeInvalidArgument, "stage %q has unknown kind %d", sc.Name, int(sc.Kind))
		}
		if _, dup := p.byName[sc.Name]; dup {
			return nil, errs.New(errs.CodeDuplicateStage, "stage declared twice").With("stage", sc.Name)
		}
		p.byName[sc.Name] = i
		p.stages = append(p.stages, &stage{
			name:  sc.Name,
			kind:  sc.Kind,
			index: i,
			items: make(map[Handle]*payload),
		})
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.sink == nil {
		p.sink = discardSink{}
	}
	p.tracer = telemetry.Guard(p.tracer, p.logger)
	return p, nil
}

// Name returns the pipeline label.
func (p *Pipeline) Name() string {
	return p.name
}

func (p *Pipeline) stageIndex(name string) (int, error) {
	idx, ok := p.byName[name]
	if !ok {
		return 0, errs.UnknownStage(name)
	}
	return idx, nil
}

// lockStages locks the given stages in ascending index order, once each,
// and returns the matching unlock.
func (p *Pipeline) lockStages(idxs ...int) func() {
	order := slices.Clone(idxs)
	slices.Sort(order)
	order = slices.Compact(order)
	for _, i := range order {
		p.stages[i].lock.Lock()
	}
	return func() {
		for i := len(order) - 1; i >= 0; i-- {
			p.stages[order[i]].lock.Unlock()
		}
	}
}

// acquire locks the stages currently holding handles, plus extra, and
// returns each handle's stage index. It retries when a handle moves between
// the table read and the lock. Handles not in the table are UNKNOWN_HANDLE.
func (p *Pipeline) acquire(handles []Handle, extra ...int) ([]int, func(), error) {
	for {
		locs := make([]int, len(handles))
		for i, h := range handles {
			idx, ok := p.handles.lookup(h)
			if !ok {
				return nil, nil, errs.UnknownHandle(int64(h))
			}
			locs[i] = idx
		}
		unlock := p.lockStages(append(slices.Clone(locs), extra...)...)

		stable := true
		for i, h := range handles {
			idx, ok := p.handles.lookup(h)
			if !ok {
				unlock()
				return nil, nil, errs.UnknownHandle(int64(h))
			}
			if idx != locs[i] {
				stable = false
				break
			}
		}
		if stable {
			return locs, unlock, nil
		}
		unlock()
	}
}

// acquireOne locks the stage holding h and returns it with the payload.
func (p *Pipeline) acquireOne(h Handle, extra ...int) (*stage, *payload, func(), error) {
	locs, unlock, err := p.acquire([]Handle{h}, extra...)
	if err != nil {
		return nil, nil, nil, err
	}
	st := p.stages[locs[0]]
	return st, st.items[h], unlock, nil
}

func (p *Pipeline) emit(e Event) {
	e.Seq = p.clock.Next()
	e.Time = p.now()
	p.sink.Emit(e)
}

func (p *Pipeline) opSpan(parent telemetry.Span, name string, attrs ...any) telemetry.Span {
	s := p.tracer.Nested(parent, name)
	for i := 0; i+1 < len(attrs); i += 2 {
		s.SetAttribute(fmt.Sprint(attrs[i]), attrs[i+1])
	}
	return s
}

// member returns the state of batch member id of pl, creating it for frames
// added to the batch after admission. A created member gets its own span under
// the batch span.
func (p *Pipeline) member(pl *payload, id int64) *member {
	m, ok := pl.members[id]
	if !ok {
		m = &member{journal: journal.New(), span: p.opSpan(pl.span, "frame", "member", id)}
		if pl.members == nil {
			pl.members = make(map[int64]*member)
		}
		pl.members[id] = m
	}
	return m
}

func kindMismatch(h Handle, got PayloadKind, st *stage) error {
	return errs.New(errs.CodeStageKindMismatch, "%s payload cannot enter %s stage", got, st.kind).
		With("handle", fmt.Sprintf("%d", h)).
		With("stage", st.name)
}

// AdmitFrame inserts f into the named stage and returns its new handle.
// Returns UNKNOWN_STAGE or STAGE_KIND_MISMATCH.
func (p *Pipeline) AdmitFrame(stageName string, f *video.Frame) (Handle, error) {
	if f == nil {
		return 0, errs.New(errs.CodeInvalidArgument, "nil frame")
	}
	root := p.tracer.Start("frame")
	root.SetAttribute("uuid", f.UUID().String())
	root.SetAttribute("source_id", f.SourceID())
	return p.admit(stageName, &payload{
		kind:    FramePayload,
		span:    root,
		frame:   f,
		journal: journal.New(),
	})
}

// AdmitBatch inserts b into the named stage and returns its new handle.
// Each member frame gets an empty journal.
func (p *Pipeline) AdmitBatch(stageName string, b *video.Batch) (Handle, error) {
	if b == nil {
		return 0, errs.New(errs.CodeInvalidArgument, "nil batch")
	}
	root := p.tracer.Start("batch")
	members := make(map[int64]*member, b.Len())
	for _, m := range b.Members() {
		members[m.ID] = &member{journal: journal.New(), span: p.opSpan(root, "frame", "uuid", m.Frame.UUID().String())}
	}
	return p.admit(stageName, &payload{
		kind:    BatchPayload,
		span:    root,
		batch:   b,
		members: members,
	})
}

func (p *Pipeline) admit(stageName string, pl *payload) (Handle, error) {
	idx, err := p.stageIndex(stageName)
	if err != nil {
		pl.span.End()
		return 0, err
	}
	st := p.stages[idx]
	if st.kind != pl.kind {
		pl.span.End()
		return 0, errs.New(errs.CodeStageKindMismatch, "%s payload cannot enter %s stage", pl.kind, st.kind).
			With("stage", st.name)
	}

	h := p.handles.issue()
	span := p.opSpan(pl.span, "admit", "stage", st.name, "handle", int64(h))
	defer span.End()

	unlock := p.lockStages(idx)
	st.items[h] = pl
	p.handles.place(h, idx)
	p.emit(Event{Type: EventAdmitted, Handle: h, Kind: pl.kind, To: st.name})
	unlock()

	p.logger.Debug("admitted", "pipeline", p.name, "handle", h, "kind", pl.kind, "stage", st.name)
	return h, nil
}
