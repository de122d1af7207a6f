package noise

import (
	"image"
	"image/color"
	"math"

	"github.com/talgya/hexgrid/internal/geom"
	"github.com/talgya/hexgrid/internal/hex"
)

// Field is the noise context for one loaded map. It never changes after
// construction, so concurrent reads are safe; Reseed and WithWrapSize return
// new values instead of mutating.
type Field struct {
	seed     int64
	hashes   HashGrid
	source   image.Image
	wrapSize int
}

// NewField builds the hash grid for seed. source may be nil, in which case
// SampleNoise returns a neutral mid-grey sample and Perturb is the identity.
func NewField(seed int64, source image.Image, wrapSize int) *Field {
	return &Field{
		seed:     seed,
		hashes:   NewHashGrid(seed),
		source:   source,
		wrapSize: wrapSize,
	}
}

// Reseed returns a field with a freshly generated hash grid. The old grid is
// not blended in.
func (f *Field) Reseed(seed int64) *Field {
	return &Field{
		seed:     seed,
		hashes:   NewHashGrid(seed),
		source:   f.source,
		wrapSize: f.wrapSize,
	}
}

// WithWrapSize returns a copy of f that blends samples across an east-west
// seam of wrapSize cells. Zero disables wrapping.
func (f *Field) WithWrapSize(wrapSize int) *Field {
	c := *f
	c.wrapSize = wrapSize
	return &c
}

func (f *Field) Seed() int64 { return f.seed }

func (f *Field) WrapSize() int { return f.wrapSize }

// Wrapping reports whether seam blending is active.
func (f *Field) Wrapping() bool { return f.wrapSize > 0 }

// SampleHashGrid returns the spatially stable hash for a position.
func (f *Field) SampleHashGrid(p geom.Vec3) Hash {
	return f.hashes.Sample(p)
}

// SampleNoise reads the noise image at p. Near the western seam of a wrapping
// map the sample is blended with the matching sample from the eastern side.
func (f *Field) SampleNoise(p geom.Vec3) [4]float64 {
	sample := f.sample(p.X, p.Z)
	if f.wrapSize > 0 && p.X < hex.InnerDiameter*1.5 {
		wrapped := f.sample(p.X+float64(f.wrapSize)*hex.InnerDiameter, p.Z)
		t := clamp01(p.X*(1/hex.InnerDiameter) - 0.5)
		for i := range sample {
			sample[i] = wrapped[i] + (sample[i]-wrapped[i])*t
		}
	}
	return sample
}

// Perturb jitters the XZ components of p by up to CellPerturbStrength.
func (f *Field) Perturb(p geom.Vec3) geom.Vec3 {
	s := f.SampleNoise(p)
	p.X += (s[0]*2 - 1) * hex.CellPerturbStrength
	p.Z += (s[2]*2 - 1) * hex.CellPerturbStrength
	return p
}

// sample does a bilinear, repeat-wrapped lookup at world (x, z).
func (f *Field) sample(x, z float64) [4]float64 {
	if f.source == nil {
		return [4]float64{0.5, 0.5, 0.5, 0.5}
	}
	b := f.source.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return [4]float64{0.5, 0.5, 0.5, 0.5}
	}

	fx := x*hex.NoiseScale*float64(w) - 0.5
	fy := z*hex.NoiseScale*float64(h) - 0.5
	x0 := math.Floor(fx)
	y0 := math.Floor(fy)
	tx := fx - x0
	ty := fy - y0

	ix := int(x0)
	iy := int(y0)
	c00 := f.texel(ix, iy, w, h)
	c10 := f.texel(ix+1, iy, w, h)
	c01 := f.texel(ix, iy+1, w, h)
	c11 := f.texel(ix+1, iy+1, w, h)

	var out [4]float64
	for i := range out {
		top := c00[i] + (c10[i]-c00[i])*tx
		bottom := c01[i] + (c11[i]-c01[i])*tx
		out[i] = top + (bottom-top)*ty
	}
	return out
}

func (f *Field) texel(x, y, w, h int) [4]float64 {
	x = wrapIndex(x, w)
	y = wrapIndex(y, h)
	b := f.source.Bounds()
	c := color.NRGBA64Model.Convert(f.source.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
	return [4]float64{
		float64(c.R) / 0xffff,
		float64(c.G) / 0xffff,
		float64(c.B) / 0xffff,
		float64(c.A) / 0xffff,
	}
}

func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
