package voxel

import "github.com/aherbert/gdsc-sub001/internal/geometry"

// Labels is the label map M[] (§3): M[i] == 0 means unassigned, otherwise
// M[i] is the id of the peak voxel i belongs to.
type Labels []int32

// NewLabels allocates a zeroed label map sized for grid g.
func NewLabels(g geometry.Grid) Labels {
	return make(Labels, g.Voxels())
}

// Flags is the flag buffer T[] (§3), one bitset per voxel.
type Flags []Flag

// NewFlags allocates a zeroed flag buffer sized for grid g.
func NewFlags(g geometry.Grid) Flags {
	return make(Flags, g.Voxels())
}

// Source is the external "one scalar per voxel" image collaborator (§6).
// Implementations hide the 8-bit/16-bit/float distinction behind Value;
// BitDepth tells the histogram (C2) which strategy to build.
type Source interface {
	Grid() geometry.Grid
	// BitDepth returns 8, 16, or 0 to mean "float32".
	BitDepth() int
	Value(i int) float64
	PixelCount() int
}

// Buffer is an in-memory float64 voxel source, the concrete Source used
// internally once an external collaborator has been read into memory
// (§1 Non-goals: no streaming, the whole volume fits in memory).
type Buffer struct {
	grid     geometry.Grid
	bitDepth int
	values   []float64
}

// NewBuffer wraps values (length must equal grid.Voxels()) as a Source
// with the given bit depth (8, 16, or 0 for float32).
func NewBuffer(grid geometry.Grid, bitDepth int, values []float64) *Buffer {
	return &Buffer{grid: grid, bitDepth: bitDepth, values: values}
}

func (b *Buffer) Grid() geometry.Grid { return b.grid }
func (b *Buffer) BitDepth() int       { return b.bitDepth }
func (b *Buffer) Value(i int) float64 { return b.values[i] }
func (b *Buffer) PixelCount() int     { return len(b.values) }

// Raw exposes the backing slice, e.g. for a blur provider to consume.
func (b *Buffer) Raw() []float64 { return b.values }

// Min returns the minimum value over the buffer; panics on an empty buffer.
func (b *Buffer) Min() float64 {
	m := b.values[0]
	for _, v := range b.values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the maximum value over the buffer; panics on an empty buffer.
func (b *Buffer) Max() float64 {
	m := b.values[0]
	for _, v := range b.values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
