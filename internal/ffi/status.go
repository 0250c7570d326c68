package ffi

import (
	"fmt"

	"github.com/roach88/framepipe/internal/errs"
)

// Status is the integer error code returned across the foreign boundary.
type Status int32

const (
	StatusOK Status = iota
	StatusUnknownPipeline
	StatusUnknownHandle
	StatusUnknownStage
	StatusInvalidSubset
	StatusMalformedGeometry
	StatusNotFound
	StatusStageKindMismatch
	StatusDuplicateStage
	StatusInvalidArgument
	StatusIDCollision
	StatusBufferTooSmall
	StatusInternal
)

var statusNames = [...]string{
	StatusOK:                "OK",
	StatusUnknownPipeline:   "UNKNOWN_PIPELINE",
	StatusUnknownHandle:     "UNKNOWN_HANDLE",
	StatusUnknownStage:      "UNKNOWN_STAGE",
	StatusInvalidSubset:     "INVALID_SUBSET",
	StatusMalformedGeometry: "MALFORMED_GEOMETRY",
	StatusNotFound:          "NOT_FOUND",
	StatusStageKindMismatch: "STAGE_KIND_MISMATCH",
	StatusDuplicateStage:    "DUPLICATE_STAGE",
	StatusInvalidArgument:   "INVALID_ARGUMENT",
	StatusIDCollision:       "ID_COLLISION",
	StatusBufferTooSmall:    "BUFFER_TOO_SMALL",
	StatusInternal:          "INTERNAL",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int32(s))
}

var statusByCode = map[errs.Code]Status{
	errs.CodeUnknownHandle:     StatusUnknownHandle,
	errs.CodeUnknownStage:      StatusUnknownStage,
	errs.CodeInvalidSubset:     StatusInvalidSubset,
	errs.CodeMalformedGeometry: StatusMalformedGeometry,
	errs.CodeNotFound:          StatusNotFound,
	errs.CodeStageKindMismatch: StatusStageKindMismatch,
	errs.CodeDuplicateStage:    StatusDuplicateStage,
	errs.CodeInvalidArgument:   StatusInvalidArgument,
	errs.CodeIDCollision:       StatusIDCollision,
}

// StatusOf maps err to a Status. Errors without a code are StatusInternal.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	if s, ok := statusByCode[errs.CodeOf(err)]; ok {
		return s
	}
	return StatusInternal
}
