package pipeline

import (
	"fmt"
	"strings"

	"github.com/roach88/framepipe/internal/errs"
	"github.com/roach88/framepipe/internal/journal"
	"github.com/roach88/framepipe/internal/telemetry"
	"github.com/roach88/framepipe/internal/video"
)

// PayloadKind is what a stage holds: independent frames or batches.
type PayloadKind int

const (
	FramePayload PayloadKind = iota
	BatchPayload
)

func (k PayloadKind) String() string {
	switch k {
	case FramePayload:
		return "frame"
	case BatchPayload:
		return "batch"
	}
	return fmt.Sprintf("PayloadKind(%d)", int(k))
}

// ParsePayloadKind parses "frame" or "batch".
func ParsePayloadKind(s string) (PayloadKind, error) {
	switch strings.ToLower(s) {
	case "frame":
		return FramePayload, nil
	case "batch":
		return BatchPayload, nil
	}
	return 0, errs.New(errs.CodeInvalidArgument, "unknown payload kind %q", s)
}

// StageConfig declares one stage. Declaration order is the lock order.
type StageConfig struct {
	Name string
	Kind PayloadKind
}

// StageInfo describes a stage and its current occupancy.
type StageInfo struct {
	Name string      `json:"name"`
	Kind PayloadKind `json:"kind"`
	Len  int         `json:"len"`
}

// MarshalText lets PayloadKind render as "frame"/"batch" in JSON and YAML.
func (k PayloadKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PayloadKind) UnmarshalText(text []byte) error {
	parsed, err := ParsePayloadKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

type stage struct {
	name  string
	kind  PayloadKind
	index int
	lock  stageLock
	items map[Handle]*payload
}

// member is the per-frame state that travels with a frame inside a batch.
type member struct {
	journal *journal.Journal
	span    telemetry.Span
}

// payload is a stage entry: one frame with its journal, or one batch with a
// journal per member frame. span is the entity's root span.
type payload struct {
	kind    PayloadKind
	span    telemetry.Span
	frame   *video.Frame
	journal *journal.Journal
	batch   *video.Batch
	members map[int64]*member
}

func (p *payload) pending() int {
	if p.kind == FramePayload {
		return p.journal.Len()
	}
	n := 0
	for _, m := range p.members {
		n += m.journal.Len()
	}
	return n
}
