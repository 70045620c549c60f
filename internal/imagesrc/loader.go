// Package imagesrc loads greyscale images from disk into voxel.Buffer
// sources, and assembles a z-stack from an ordered list of 2D slices.
package imagesrc

import (
	"fmt"
	"image"

	_ "golang.org/x/image/tiff"

	"github.com/disintegration/imaging"

	"github.com/aherbert/gdsc-sub001/internal/focierr"
	"github.com/aherbert/gdsc-sub001/internal/geometry"
	"github.com/aherbert/gdsc-sub001/internal/voxel"
)

// Load decodes a single 2D greyscale image file into a voxel.Buffer.
// Supported pixel formats are 8-bit and 16-bit grayscale; anything else
// (RGB, paletted, multi-channel) is rejected with ErrUnsupportedImage.
func Load(path string) (*voxel.Buffer, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imagesrc: opening %s: %w", path, err)
	}
	return fromImage(img)
}

// LoadStack decodes an ordered list of 2D slice files (lowest z first)
// into a single 3D voxel.Buffer. Every slice must share the same
// dimensions and bit depth.
func LoadStack(paths []string) (*voxel.Buffer, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: empty slice list", focierr.ErrInvalidConfiguration)
	}

	first, err := Load(paths[0])
	if err != nil {
		return nil, err
	}
	g := first.Grid()
	values := make([]float64, 0, g.Voxels()*len(paths))
	values = append(values, first.Raw()...)

	for _, p := range paths[1:] {
		slice, err := Load(p)
		if err != nil {
			return nil, err
		}
		sg := slice.Grid()
		if sg.Width != g.Width || sg.Height != g.Height || slice.BitDepth() != first.BitDepth() {
			return nil, fmt.Errorf("%w: slice %s dimensions/bit-depth do not match stack", focierr.ErrInvalidConfiguration, p)
		}
		values = append(values, slice.Raw()...)
	}

	stack := geometry.NewGrid(g.Width, g.Height, len(paths))
	return voxel.NewBuffer(stack, first.BitDepth(), values), nil
}

func fromImage(img image.Image) (*voxel.Buffer, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	g := geometry.NewGrid(w, h, 1)
	values := make([]float64, w*h)

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				values[y*w+x] = float64(src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
		return voxel.NewBuffer(g, 8, values), nil
	case *image.Gray16:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				values[y*w+x] = float64(src.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
		return voxel.NewBuffer(g, 16, values), nil
	default:
		return nil, fmt.Errorf("imagesrc: %w: %T", focierr.ErrUnsupportedImage, img)
	}
}
