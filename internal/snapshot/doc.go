// Package snapshot folds the raw node records of one poll cycle into an
// immutable Snapshot: per-state counts, a total and the workflow metadata.
//
// A Snapshot is a plain value. Its counts are a fixed-size array, so copies
// handed to different consumers never share mutable state.
package snapshot
