package pipeline

import (
	"time"

	"github.com/roach88/framepipe/internal/video"
)

// EventType names a state transition.
type EventType string

const (
	EventAdmitted EventType = "admitted"
	EventMoved    EventType = "moved"
	EventSplit    EventType = "split"
	EventPacked   EventType = "packed"
	EventUnpacked EventType = "unpacked"
	EventApplied  EventType = "applied"
	EventCleared  EventType = "cleared"
	EventDeleted  EventType = "deleted"
)

// Event records one completed transition.
//
// Handle is the entity the operation was addressed to. Related carries the
// other handles involved: the retired frames of a pack, the new frames of an
// unpack, or the new batch of a split.
type Event struct {
	Seq     int64
	Time    time.Time
	Type    EventType
	Handle  Handle
	Kind    PayloadKind
	From    string
	To      string
	Related []Handle
	Applied int
	Skipped int
	// Frames holds snapshots of the frames leaving the pipeline on delete.
	Frames []video.FrameSnapshot
}

// EventSink receives pipeline events.
//
// Emit is called while stage locks are held, in Seq order per handle. It must
// not block and must not call back into the Pipeline.
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Emit(e Event) { f(e) }

type discardSink struct{}

func (discardSink) Emit(Event) {}
