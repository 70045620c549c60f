package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/aherbert/gdsc-sub001/internal/imagesrc"
	"github.com/aherbert/gdsc-sub001/internal/result"
	"github.com/aherbert/gdsc-sub001/internal/voxel"
)

func loadSource(path string) (voxel.Source, error) {
	return imagesrc.Load(path)
}

// writeMask encodes the first z-slice of a rasterized label volume as a
// 16-bit grayscale PNG; callers needing the full volume use the library
// API directly rather than this CLI convenience.
func writeMask(path string, src voxel.Source, vol *result.Volume) error {
	g := src.Grid()
	img := image.NewGray16(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			i := g.Index(x, y, 0)
			var v uint16
			if vol.Bits == 8 {
				v = uint16(vol.Wide8[i])
			} else {
				v = vol.Wide16[i]
			}
			img.SetGray16(x, y, color.Gray16{Y: v})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing mask: %w", err)
	}
	defer f.Close()
	return png.Encode(f, img)
}
