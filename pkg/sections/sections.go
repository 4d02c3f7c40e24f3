// Package sections exports axis-aligned 2D sections of a density map as
// grayscale images for quick visual inspection of processed maps.
package sections

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"panddamaps/pkg/ccp4"
)

// Exporter extracts 2D sections from one map. Intensities are scaled
// over mean +/- 3 RMS of the map, the window crystallographers usually
// contour density in, so output images are comparable across maps.
type Exporter struct {
	m        *ccp4.Map
	lo, span float64
}

// NewExporter builds an exporter for a map in canonical axis order
// (after Setup or reconstruction).
func NewExporter(m *ccp4.Map) *Exporter {
	var sum, sumSq float64
	for _, v := range m.Data {
		f := float64(v)
		sum += f
		sumSq += f * f
	}
	n := float64(len(m.Data))
	mean := 0.0
	rms := 0.0
	if n > 0 {
		mean = sum / n
		rms = math.Sqrt(sumSq/n - mean*mean)
	}

	span := 6 * rms
	if span == 0 {
		span = 1
	}
	return &Exporter{m: m, lo: mean - 3*rms, span: span}
}

// Section extracts the 2D section perpendicular to the given axis at the
// given grid position.
func (e *Exporter) Section(axis string, pos int) (image.Image, error) {
	if pos < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	nu, nv, nw := e.m.Dims()

	var img *image.Gray16
	switch axis {
	case "x", "X":
		if pos >= nu {
			return nil, fmt.Errorf("position %d exceeds grid extent %d along x", pos, nu)
		}
		img = image.NewGray16(image.Rect(0, 0, nv, nw))
		for w := 0; w < nw; w++ {
			for v := 0; v < nv; v++ {
				img.SetGray16(v, w, e.gray(e.m.At(pos, v, w)))
			}
		}
	case "y", "Y":
		if pos >= nv {
			return nil, fmt.Errorf("position %d exceeds grid extent %d along y", pos, nv)
		}
		img = image.NewGray16(image.Rect(0, 0, nu, nw))
		for w := 0; w < nw; w++ {
			for u := 0; u < nu; u++ {
				img.SetGray16(u, w, e.gray(e.m.At(u, pos, w)))
			}
		}
	case "z", "Z":
		if pos >= nw {
			return nil, fmt.Errorf("position %d exceeds grid extent %d along z", pos, nw)
		}
		img = image.NewGray16(image.Rect(0, 0, nu, nv))
		for v := 0; v < nv; v++ {
			for u := 0; u < nu; u++ {
				img.SetGray16(u, v, e.gray(e.m.At(u, v, pos)))
			}
		}
	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
	return img, nil
}

func (e *Exporter) gray(v float32) color.Gray16 {
	scaled := (float64(v) - e.lo) / e.span
	scaled = math.Max(0, math.Min(1, scaled))
	return color.Gray16{Y: uint16(scaled * 65535)}
}

// SaveSequence extracts every section along the axis and writes them as
// PNG files into outputDir.
func (e *Exporter) SaveSequence(axis, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	nu, nv, nw := e.m.Dims()
	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = nu
	case "y", "Y":
		maxPos = nv
	case "z", "Z":
		maxPos = nw
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := e.Section(axis, pos)
		if err != nil {
			return err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("section_%s_%03d.png", axis, pos))
		if err := savePNG(img, filename); err != nil {
			return err
		}
	}
	return nil
}

func savePNG(img image.Image, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, img)
}
