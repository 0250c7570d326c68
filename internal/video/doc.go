// Package video holds the entities a pipeline moves: objects, frames and
// batches of frames.
//
// Frames own their objects; batches own their member frames. All three are
// safe for concurrent use. Snapshot methods return plain copies for logging,
// storage and comparison.
package video
