package journal

import (
	"fmt"

	"github.com/roach88/framepipe/internal/errs"
)

// AttributePolicy resolves a SetAttribute that hits an existing key.
type AttributePolicy int

const (
	ReplaceWithForeign AttributePolicy = iota
	KeepOwn
	ErrorWhenDuplicate
)

func (p AttributePolicy) String() string {
	switch p {
	case ReplaceWithForeign:
		return "replace_with_foreign"
	case KeepOwn:
		return "keep_own"
	case ErrorWhenDuplicate:
		return "error_when_duplicate"
	}
	return fmt.Sprintf("AttributePolicy(%d)", int(p))
}

// ParseAttributePolicy parses the String form. The empty string is
// ReplaceWithForeign.
func ParseAttributePolicy(s string) (AttributePolicy, error) {
	for _, p := range []AttributePolicy{ReplaceWithForeign, KeepOwn, ErrorWhenDuplicate} {
		if s == p.String() {
			return p, nil
		}
	}
	if s == "" {
		return ReplaceWithForeign, nil
	}
	return 0, errs.New(errs.CodeInvalidArgument, "unknown attribute policy %q", s)
}

// ObjectPolicy resolves an AddObject whose label is already on the frame.
type ObjectPolicy int

const (
	AddForeign ObjectPolicy = iota
	ErrorIfLabelsCollide
	ReplaceSameLabel
)

func (p ObjectPolicy) String() string {
	switch p {
	case AddForeign:
		return "add_foreign"
	case ErrorIfLabelsCollide:
		return "error_if_labels_collide"
	case ReplaceSameLabel:
		return "replace_same_label"
	}
	return fmt.Sprintf("ObjectPolicy(%d)", int(p))
}

// ParseObjectPolicy parses the String form. The empty string is AddForeign.
func ParseObjectPolicy(s string) (ObjectPolicy, error) {
	for _, p := range []ObjectPolicy{AddForeign, ErrorIfLabelsCollide, ReplaceSameLabel} {
		if s == p.String() {
			return p, nil
		}
	}
	if s == "" {
		return AddForeign, nil
	}
	return 0, errs.New(errs.CodeInvalidArgument, "unknown object policy %q", s)
}
