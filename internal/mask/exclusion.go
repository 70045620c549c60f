// Package mask builds the EXCLUDED flags from a ROI and an external mask
// (C4).
package mask

import (
	"fmt"

	"github.com/aherbert/gdsc-sub001/internal/collab"
	"github.com/aherbert/gdsc-sub001/internal/focierr"
	"github.com/aherbert/gdsc-sub001/internal/geometry"
	"github.com/aherbert/gdsc-sub001/internal/voxel"
)

// Apply sets EXCLUDED on every voxel outside roi ∩ m, replicating a 2D
// roi/mask across all z-slices. It reports whether any voxel was
// excluded. roi and m may each be nil, meaning "no restriction".
func Apply(g geometry.Grid, flags voxel.Flags, roi collab.ROI, m collab.Mask) (bool, error) {
	if m != nil {
		mw, mh, md := m.Bounds()
		if mw != g.Width || mh != g.Height || (m.Is3D() && md != g.Depth) {
			return false, fmt.Errorf("%w: mask dimensions %dx%dx%d do not match image %dx%dx%d",
				focierr.ErrInvalidConfiguration, mw, mh, md, g.Width, g.Height, g.Depth)
		}
	}

	any := false
	rx, ry, rw, rh := 0, 0, g.Width, g.Height
	kind := collab.ROINone
	if roi != nil {
		kind = roi.Kind()
		rx, ry, rw, rh = roi.Bounds()
	}

	for z := 0; z < g.Depth; z++ {
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				excluded := !insideROI(roi, kind, rx, ry, rw, rh, x, y)
				if !excluded && m != nil && !m.Contains(x, y, z) {
					excluded = true
				}
				if excluded {
					i := g.Index(x, y, z)
					flags[i] = flags[i].Set(voxel.EXCLUDED)
					any = true
				}
			}
		}
	}
	return any, nil
}

func insideROI(roi collab.ROI, kind collab.ROIKind, rx, ry, rw, rh, x, y int) bool {
	switch kind {
	case collab.ROINone:
		return true
	case collab.ROIRectangle:
		return x >= rx && x < rx+rw && y >= ry && y < ry+rh
	case collab.ROIRoundRectangle:
		// Euclidean (elliptical-corner) test within the bounding box.
		if x < rx || x >= rx+rw || y < ry || y >= ry+rh {
			return false
		}
		return roi.Contains(x, y)
	default: // ROIEllipse, ROIFreehand, ROIMask: per-pixel test.
		if x < rx || x >= rx+rw || y < ry || y >= ry+rh {
			return false
		}
		return roi.Contains(x, y)
	}
}

// EllipseROI is a stock elliptical ROI implementation, provided as a
// convenience Contains test for callers wiring collab.ROI from a simple
// bounding ellipse rather than a full mask raster.
type EllipseROI struct {
	X, Y, W, H int
}

func (e EllipseROI) IsArea() bool          { return true }
func (e EllipseROI) Bounds() (int, int, int, int) { return e.X, e.Y, e.W, e.H }
func (e EllipseROI) Kind() collab.ROIKind  { return collab.ROIEllipse }
func (e EllipseROI) Contains(x, y int) bool {
	if e.W == 0 || e.H == 0 {
		return false
	}
	cx := float64(e.X) + float64(e.W)/2
	cy := float64(e.Y) + float64(e.H)/2
	dx := (float64(x) + 0.5 - cx) / (float64(e.W) / 2)
	dy := (float64(y) + 0.5 - cy) / (float64(e.H) / 2)
	return dx*dx+dy*dy <= 1.0+1e-9
}
