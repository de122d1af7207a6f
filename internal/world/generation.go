// Map generation using layered simplex noise.
// Elevation and moisture layers are derived first, then water, terrain and
// the unexplorable border.
package world

import (
	"math"
	"math/rand"

	"github.com/dustin/go-humanize"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/hexgrid/internal/hex"
)

// GenConfig holds map generation parameters.
type GenConfig struct {
	Seed          int64   // Random seed (0 = random)
	SeaLevel      float64 // Normalized elevation below which cells are flooded (0.0-1.0)
	MountainLevel float64 // Normalized elevation of stone highlands (0.0-1.0)
	MaxElevation  int     // Elevation of the highest peak
	WaterLevel    int     // Water surface of every flooded cell
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:          0,
		SeaLevel:      0.35,
		MountainLevel: 0.75,
		MaxElevation:  8,
		WaterLevel:    3,
	}
}

// SmallTestConfig returns a fixed-seed configuration for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Seed:          42,
		SeaLevel:      0.30,
		MountainLevel: 0.75,
		MaxElevation:  6,
		WaterLevel:    2,
	}
}

// Generate fills the current map with terrain. The map must have been
// created first. It returns the seed actually used.
func Generate(g *Grid, cfg GenConfig) int64 {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	// Independent layers for height and wetness.
	elevNoise := opensimplex.NewNormalized(seed)
	moistNoise := opensimplex.NewNormalized(seed + 1)

	moisture := make([]float64, len(g.cells))
	for i := range g.cells {
		c := &g.cells[i]
		col, row := c.coordinates.Offset()

		elev := g.sampleLayer(elevNoise, col, row, 4, 0.08)
		moisture[i] = g.sampleLayer(moistNoise, col, row, 3, 0.06)

		// Continental shaping: pull the edges of a bounded map under water.
		// Wrapping maps only fall off towards the poles.
		elev *= g.edgeFalloff(col, row)

		c.elevation = int(math.Round(elev * float64(cfg.MaxElevation)))
		c.waterLevel = cfg.WaterLevel
		c.terrain = deriveTerrain(elev, moisture[i], c.IsUnderwater(), cfg)
		c.explorable = g.insideBorder(col, row)
		c.explored = false
		c.roads = 0
		g.markDirty(c.chunkIndex)
	}

	// Post-pass: shores become sand.
	coast := markCoastalCells(g)

	counts := TerrainCounts(g)
	g.log.Info("map generated",
		"seed", seed,
		"cells", humanize.Comma(int64(len(g.cells))),
		"coast", humanize.Comma(int64(coast)),
		"grass", counts[TerrainGrass],
		"stone", counts[TerrainStone],
		"snow", counts[TerrainSnow],
	)
	return seed
}

// sampleLayer returns fractal noise for an offset cell in [0, 1]. On a
// wrapping map the columns are laid around a cylinder so the east and west
// edges meet without a seam.
func (g *Grid) sampleLayer(n opensimplex.Noise, col, row, octaves int, frequency float64) float64 {
	x := float64(col) + float64(row&1)*0.5
	y := float64(row) * math.Sqrt(3.0) / 2.0
	if g.wrapSize == 0 {
		return octaveNoise(func(f float64) float64 { return n.Eval2(x*f, y*f) }, octaves, frequency, 0.5)
	}
	radius := float64(g.wrapSize) / (2 * math.Pi)
	angle := x / float64(g.wrapSize) * 2 * math.Pi
	cx, cz := math.Cos(angle)*radius, math.Sin(angle)*radius
	return octaveNoise(func(f float64) float64 { return n.Eval3(cx*f, cz*f, y*f) }, octaves, frequency, 0.5)
}

func (g *Grid) edgeFalloff(col, row int) float64 {
	dz := math.Abs(float64(row)/float64(max(g.cellCountZ-1, 1))*2 - 1)
	d := dz
	if g.wrapSize == 0 {
		dx := math.Abs(float64(col)/float64(max(g.cellCountX-1, 1))*2 - 1)
		d = math.Max(dx, dz)
	}
	return math.Max(0, 1-math.Pow(d, 3.5))
}

// insideBorder reports whether a cell is away from the map edge. Border cells
// stay unexplorable so units never see or walk off the map.
func (g *Grid) insideBorder(col, row int) bool {
	if row == 0 || row == g.cellCountZ-1 {
		return false
	}
	if g.wrapSize > 0 {
		return true
	}
	return col > 0 && col < g.cellCountX-1
}

// deriveTerrain determines terrain type from normalized elevation and
// moisture.
func deriveTerrain(elev, moist float64, underwater bool, cfg GenConfig) Terrain {
	if underwater {
		if elev < cfg.SeaLevel/2 {
			return TerrainMud
		}
		return TerrainSand
	}
	if elev > cfg.MountainLevel {
		if elev > (1+cfg.MountainLevel)/2 {
			return TerrainSnow
		}
		return TerrainStone
	}
	if moist > 0.7 && elev < 0.45 {
		return TerrainMud
	}
	if moist < 0.25 {
		return TerrainSand
	}
	return TerrainGrass
}

// markCoastalCells turns dry grass and mud next to water into sand and
// returns how many cells changed.
func markCoastalCells(g *Grid) int {
	var toMark []int
	for i := range g.cells {
		c := &g.cells[i]
		if c.IsUnderwater() {
			continue
		}
		for _, d := range hex.Directions {
			if n := c.Neighbor(d); n != nil && n.IsUnderwater() {
				toMark = append(toMark, i)
				break
			}
		}
	}

	marked := 0
	for _, i := range toMark {
		c := &g.cells[i]
		if c.terrain == TerrainGrass || c.terrain == TerrainMud {
			c.terrain = TerrainSand
			marked++
		}
	}
	return marked
}

// octaveNoise layers several frequencies of eval and renormalizes the sum.
func octaveNoise(eval func(frequency float64) float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += eval(frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// TerrainCounts returns a summary of terrain type distribution.
func TerrainCounts(g *Grid) map[Terrain]int {
	counts := make(map[Terrain]int)
	for i := range g.cells {
		counts[g.cells[i].terrain]++
	}
	return counts
}
