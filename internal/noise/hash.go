// Package noise provides the deterministic perturbation sources used by map
// geometry: a seeded hash grid and a sampled noise image. Both are wrapped
// in an immutable Field built once per map load.
package noise

import (
	"math/rand"

	"github.com/talgya/hexgrid/internal/geom"
	"github.com/talgya/hexgrid/internal/hex"
)

// Hash is a five-component pseudo-random value, each in [0, 0.999).
type Hash struct {
	A, B, C, D, E float64
}

// HashGrid is a square HashGridSize x HashGridSize table of hashes.
type HashGrid []Hash

// NewHashGrid fills a new grid from a generator seeded exactly once.
// The same seed always yields the same grid.
func NewHashGrid(seed int64) HashGrid {
	rng := rand.New(rand.NewSource(seed))
	grid := make(HashGrid, hex.HashGridSize*hex.HashGridSize)
	for i := range grid {
		grid[i] = Hash{
			A: rng.Float64() * 0.999,
			B: rng.Float64() * 0.999,
			C: rng.Float64() * 0.999,
			D: rng.Float64() * 0.999,
			E: rng.Float64() * 0.999,
		}
	}
	return grid
}

// Sample maps a world position onto the grid and returns the stored hash.
// Positions outside one grid span wrap around.
func (g HashGrid) Sample(p geom.Vec3) Hash {
	x := int(p.X*hex.HashGridScale) % hex.HashGridSize
	if x < 0 {
		x += hex.HashGridSize
	}
	z := int(p.Z*hex.HashGridScale) % hex.HashGridSize
	if z < 0 {
		z += hex.HashGridSize
	}
	return g[x+z*hex.HashGridSize]
}
