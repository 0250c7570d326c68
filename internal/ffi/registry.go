// Package ffi is the foreign-call surface of the engine.
//
// Foreign callers never hold Go pointers. A pipeline is addressed by a
// PipelineHandle issued by Register; frames and batches by their pipeline
// handles; objects by (frame handle, object id). Every call validates its
// handles and reports failure as a Status. String and slice results are
// written into caller buffers and the required length is returned; a short
// buffer is left untouched so the caller can resize and call again.
package ffi

import (
	"sync"

	"github.com/roach88/framepipe/internal/pipeline"
)

// PipelineHandle identifies a registered pipeline.
type PipelineHandle uint64

type registry struct {
	mu        sync.RWMutex
	next      PipelineHandle
	pipelines map[PipelineHandle]*pipeline.Pipeline
}

var pipelines = &registry{pipelines: make(map[PipelineHandle]*pipeline.Pipeline)}

// Register makes p reachable from foreign code. Handles start at 1 and are
// never reused.
func Register(p *pipeline.Pipeline) PipelineHandle {
	pipelines.mu.Lock()
	defer pipelines.mu.Unlock()
	pipelines.next++
	pipelines.pipelines[pipelines.next] = p
	return pipelines.next
}

// Unregister drops ph. Returns false if it was not registered.
func Unregister(ph PipelineHandle) bool {
	pipelines.mu.Lock()
	defer pipelines.mu.Unlock()
	if _, ok := pipelines.pipelines[ph]; !ok {
		return false
	}
	delete(pipelines.pipelines, ph)
	return true
}

func lookup(ph PipelineHandle) (*pipeline.Pipeline, Status) {
	pipelines.mu.RLock()
	defer pipelines.mu.RUnlock()
	p, ok := pipelines.pipelines[ph]
	if !ok {
		return nil, StatusUnknownPipeline
	}
	return p, StatusOK
}

// CheckVersion reports whether the caller was built against this engine
// version.
func CheckVersion(external string) bool {
	return external == pipeline.Version
}
