package noise

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	opensimplex "github.com/ojrac/opensimplex-go"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LoadSource decodes a noise image from disk. PNG, JPEG, GIF, BMP, TIFF and
// WebP are recognised.
func LoadSource(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open noise image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode noise image %s: %w", path, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("noise image %s (%s) is empty", path, format)
	}
	return img, nil
}

// GenerateSource builds a size x size tileable noise image. Each channel is an
// independent layer of octave simplex noise sampled on a torus so that the
// texture repeats without a seam.
func GenerateSource(seed int64, size int) *image.NRGBA {
	layers := [4]opensimplex.Noise{
		opensimplex.NewNormalized(seed),
		opensimplex.NewNormalized(seed + 1),
		opensimplex.NewNormalized(seed + 2),
		opensimplex.NewNormalized(seed + 3),
	}

	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			var c [4]uint8
			for i, layer := range layers {
				v := torusNoise(layer, float64(x)/float64(size), float64(y)/float64(size), 4, 2.0, 0.5)
				c[i] = uint8(math.Round(clamp01(v) * 255))
			}
			img.SetNRGBA(x, y, color.NRGBA{R: c[0], G: c[1], B: c[2], A: c[3]})
		}
	}
	return img
}

// torusNoise layers octaves of 4D noise sampled around two circles, which
// makes u and v periodic over [0, 1).
func torusNoise(n opensimplex.Noise, u, v float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		r := frequency / (2 * math.Pi)
		a := 2 * math.Pi * u
		b := 2 * math.Pi * v
		total += n.Eval4(r*math.Cos(a), r*math.Sin(a), r*math.Cos(b), r*math.Sin(b)) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
