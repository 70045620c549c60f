// Package geometry packs and unpacks voxel coordinates and provides the
// 26-neighbour / 13-half-neighbour offset tables shared by every stage of
// the pipeline (C1 in the design: geometry & neighbourhood).
package geometry

// Grid describes the dimensions of a z-major, y-middle, x-minor voxel
// buffer: index = z*W*H + y*W + x. A 2D image has Depth == 1.
type Grid struct {
	Width, Height, Depth int
}

// NewGrid returns a Grid of the given dimensions, clamping depth to at
// least 1; width and height are not checked.
func NewGrid(width, height, depth int) Grid {
	if depth < 1 {
		depth = 1
	}
	return Grid{Width: width, Height: height, Depth: depth}
}

// Voxels returns the total voxel count W*H*D.
func (g Grid) Voxels() int { return g.Width * g.Height * g.Depth }

// Is3D reports whether the grid has more than one z-slice.
func (g Grid) Is3D() bool { return g.Depth > 1 }

// Index packs (x,y,z) into a linear index.
func (g Grid) Index(x, y, z int) int {
	return z*g.Width*g.Height + y*g.Width + x
}

// Coords unpacks a linear index into (x,y,z).
func (g Grid) Coords(i int) (x, y, z int) {
	plane := g.Width * g.Height
	z = i / plane
	rem := i % plane
	y = rem / g.Width
	x = rem % g.Width
	return
}

// Limits returns (xlimit, ylimit, zlimit) = (W-1, H-1, D-1), used by the
// direction-predicate tests.
func (g Grid) Limits() (xlimit, ylimit, zlimit int) {
	return g.Width - 1, g.Height - 1, g.Depth - 1
}

// Interior reports whether (x,y,z) is strictly interior, i.e. every
// neighbour direction is guaranteed in-bounds without a per-direction check.
func (g Grid) Interior(x, y, z int) bool {
	xl, yl, zl := g.Limits()
	if x < 1 || x >= xl || y < 1 || y >= yl {
		return false
	}
	if g.Is3D() && (z < 1 || z >= zl) {
		return false
	}
	return true
}

// Offset is one entry of a neighbourhood table: the (dx,dy,dz) displacement
// and whether it is a flat edge (|dx|+|dy|+|dz| == 1) as opposed to a
// diagonal.
type Offset struct {
	DX, DY, DZ int
	FlatEdge   bool
}

// Full26 is the full 3D neighbourhood, ordered per §4.1: the 8 in-plane
// neighbours of the centre pixel (anti-clockwise, beginning north), then
// the 9 neighbours at z-1 (centre last), then the 9 at z+1 (centre last).
var Full26 = buildFull26()

// Half13 is half of Full26 — one offset from each antipodal pair — used
// to enumerate unordered neighbour pairs exactly once (C7, saddle-graph
// construction).
var Half13 = Full26[:13]

func buildFull26() [26]Offset {
	// In-plane ring, anti-clockwise starting north: N, NW, W, SW, S, SE, E, NE.
	inPlane := [8][2]int{
		{0, -1}, {-1, -1}, {-1, 0}, {-1, 1},
		{0, 1}, {1, 1}, {1, 0}, {1, -1},
	}

	var out [26]Offset
	idx := 0
	for _, d := range inPlane {
		out[idx] = mkOffset(d[0], d[1], 0)
		idx++
	}
	// z-1 plane: 8 ring neighbours then centre.
	for _, d := range inPlane {
		out[idx] = mkOffset(d[0], d[1], -1)
		idx++
	}
	out[idx] = mkOffset(0, 0, -1)
	idx++
	// z+1 plane: 8 ring neighbours then centre.
	for _, d := range inPlane {
		out[idx] = mkOffset(d[0], d[1], 1)
		idx++
	}
	out[idx] = mkOffset(0, 0, 1)
	idx++
	return out
}

func mkOffset(dx, dy, dz int) Offset {
	abs := func(v int) int {
		if v < 0 {
			return -v
		}
		return v
	}
	return Offset{DX: dx, DY: dy, DZ: dz, FlatEdge: abs(dx)+abs(dy)+abs(dz) == 1}
}

// NeighbourCount returns 26 for a 3D grid, 8 for a 2D one (the first 8
// entries of Full26 are exactly the in-plane ring).
func (g Grid) NeighbourCount() int {
	if g.Is3D() {
		return 26
	}
	return 8
}

// Within reports whether (x,y,z) plus offset d stays within the grid.
func (g Grid) Within(x, y, z int, d Offset) bool {
	xl, yl, zl := g.Limits()
	nx, ny, nz := x+d.DX, y+d.DY, z+d.DZ
	if nx < 0 || nx > xl || ny < 0 || ny > yl {
		return false
	}
	if g.Is3D() && (nz < 0 || nz > zl) {
		return false
	}
	if !g.Is3D() && nz != 0 {
		return false
	}
	return true
}

// Neighbour applies offset d to (x,y,z) and returns the linear index. The
// caller must have already checked Within (or Interior).
func (g Grid) Neighbour(x, y, z int, d Offset) int {
	return g.Index(x+d.DX, y+d.DY, z+d.DZ)
}
