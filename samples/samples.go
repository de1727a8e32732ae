// Package samples draws synthetic photos for tests and for the demo tree.
package samples

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
)

// Sunset draws a sky gradient with a sun. brightness scales how far the
// gradient moves from sky blue towards orange, so values near 1.0 give
// visually similar pictures.
func Sunset(size int, brightness float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	for y := 0; y < size; y++ {
		progress := float64(y) / float64(size)
		r := clamp(135 + (255-135)*progress*brightness)
		g := clamp(206 + (100-206)*progress*brightness)
		b := clamp(235 + (50-235)*progress*brightness)
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{r, g, b, 255})
		}
	}

	sunX, sunY := size/2, size/3
	sunRadius := size / 8
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := x - sunX
			dy := y - sunY
			if dx*dx+dy*dy < sunRadius*sunRadius {
				img.Set(x, y, color.RGBA{255, 215, 0, 255})
			}
		}
	}
	return img
}

// Cat draws a grey cat silhouette on a pale background.
func Cat(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	background := color.RGBA{240, 248, 255, 255}
	catColor := color.RGBA{100, 100, 100, 255}
	s := float64(size) / 256

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			fx, fy := float64(x)/s, float64(y)/s
			img.Set(x, y, background)
			if inEllipse(fx, fy, 128, 170, 40, 30) || inEllipse(fx, fy, 128, 100, 35, 30) {
				img.Set(x, y, catColor)
			}
			// ears
			if fy >= 65 && fy < 85 && ((fx >= 93 && fx < 113 && fx+fy > 158) || (fx >= 143 && fx < 163 && 256-fx+fy > 158)) {
				img.Set(x, y, catColor)
			}
		}
	}
	return img
}

// Split paints the first half of the image light and the second half
// dark. The halves are left|right, or top|bottom when horizontal is true.
func Split(size int, light, dark uint8, horizontal bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			pos := x
			if horizontal {
				pos = y
			}
			v := dark
			if pos < size/2 {
				v = light
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// Brighten multiplies every channel by factor, clamping at 255.
func Brighten(img image.Image, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clamp(float64(c.R) * factor),
			G: clamp(float64(c.G) * factor),
			B: clamp(float64(c.B) * factor),
			A: c.A,
		}
	})
}

// Encode renders img in the format implied by name's extension.
func Encode(name string, img image.Image) ([]byte, error) {
	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(90)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteImage encodes img and writes it to path, creating parent directories.
func WriteImage(fs afero.Fs, path string, img image.Image) error {
	data, err := Encode(path, img)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return WriteFile(fs, path, data)
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(fs afero.Fs, path string, data []byte) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0o644)
}

func inEllipse(x, y, cx, cy, rx, ry float64) bool {
	dx, dy := (x-cx)/rx, (y-cy)/ry
	return dx*dx+dy*dy <= 1.0
}

func clamp(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
