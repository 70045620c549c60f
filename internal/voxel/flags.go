// Package voxel holds the per-voxel flag bitset (C3) and the label map /
// flag buffer pair threaded through every stage of the pipeline.
package voxel

// Flag is a per-voxel bitset. Several constants alias the same bit on
// purpose (§9 "Flag-bit aliasing"): a bit's meaning is scoped to the
// phase that set it, and must be cleared before a later phase reuses it.
type Flag uint8

const (
	// EXCLUDED marks a voxel outside ROI ∩ mask; it is never assigned.
	EXCLUDED Flag = 1 << iota
	// MAXIMUM marks a seed maximum (the plateau centre, for plateaus).
	MAXIMUM
	// LISTED marks a voxel currently on an in-progress worklist (scratch).
	LISTED
	// MAX_AREA marks a voxel that belongs to some peak (M[i] >= 1).
	MAX_AREA
	// PLATEAU marks a voxel that is part of a local plateau. Aliases
	// BELOW_SADDLE, which is only meaningful during mask rasterization.
	PLATEAU
	// NOT_MAXIMUM marks a voxel with a strictly higher neighbour, skipped
	// when seeding maxima. Aliases SADDLE_POINT and SADDLE_SEARCH, which
	// are only meaningful during saddle-graph construction.
	NOT_MAXIMUM
	// SADDLE marks a voxel used in border rasterization classification.
	SADDLE
	// SADDLE_WITHIN marks a voxel inside a peak's above-saddle subset
	// during border rasterization.
	SADDLE_WITHIN
)

// SADDLE_POINT and SADDLE_SEARCH alias NOT_MAXIMUM: a voxel on a region
// boundary that the saddle builder must revisit (§3).
const (
	SADDLE_POINT  = NOT_MAXIMUM
	SADDLE_SEARCH = NOT_MAXIMUM
)

// BELOW_SADDLE aliases PLATEAU, reused during mask rasterization once
// plateau detection is long finished.
const BELOW_SADDLE = PLATEAU

// IGNORE is the skip condition during flood fills: EXCLUDED ∪ LISTED.
const IGNORE = EXCLUDED | LISTED

// Has reports whether f is set in the receiver.
func (t Flag) Has(f Flag) bool { return t&f != 0 }

// Set returns the receiver with f set.
func (t Flag) Set(f Flag) Flag { return t | f }

// Clear returns the receiver with f cleared.
func (t Flag) Clear(f Flag) Flag { return t &^ f }
