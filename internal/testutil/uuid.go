package testutil

import (
	"encoding/binary"
	"sync"

	"github.com/google/uuid"
)

// SequentialUUIDSource hands out version 7 shaped UUIDs whose low bytes
// count up from 1. It implements video.UUIDSource.
//
// Thread-safety: SequentialUUIDSource is safe for concurrent use.
type SequentialUUIDSource struct {
	mu sync.Mutex
	n  uint64
}

func NewSequentialUUIDSource() *SequentialUUIDSource {
	return &SequentialUUIDSource{}
}

// NewUUID returns 00000000-0000-7000-8000-<n as 12 hex digits>.
func (s *SequentialUUIDSource) NewUUID() uuid.UUID {
	s.mu.Lock()
	s.n++
	n := s.n
	s.mu.Unlock()

	var id uuid.UUID
	id[6] = 0x70
	binary.BigEndian.PutUint64(id[8:], n|0x8000_0000_0000_0000)
	return id
}
