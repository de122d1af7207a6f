// Unit placement: finds good starting cells and names the units placed there.
package world

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/talgya/hexgrid/internal/hex"
)

// SpawnPoint is a scored starting cell for a unit.
type SpawnPoint struct {
	Coordinates hex.Coordinates
	Score       float64 // Desirability score
	Name        string
}

// PlaceUnits picks up to count starting cells, best first, at least minDist
// steps apart. Only cells that t accepts are considered.
func PlaceUnits(g *Grid, t UnitType, count, minDist int, seed int64) []SpawnPoint {
	rng := rand.New(rand.NewSource(seed + 200))

	// Score every open cell for desirability.
	type scored struct {
		cell  *Cell
		score float64
	}
	var candidates []scored

	for i := range g.cells {
		c := &g.cells[i]
		if !c.explorable || c.IsUnderwater() || c.unit >= 0 || !t.IsValidDestination(c) {
			continue
		}
		if s := spawnScore(c); s > 0 {
			candidates = append(candidates, scored{c, s})
		}
	}

	// Sort by score descending, index ascending for equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	var spawns []SpawnPoint
	for _, c := range candidates {
		if len(spawns) >= count {
			break
		}
		if tooClose(g, c.cell.coordinates, spawns, minDist) {
			continue
		}
		spawns = append(spawns, SpawnPoint{
			Coordinates: c.cell.coordinates,
			Score:       c.score,
		})
	}

	// Assign procedural names.
	names := generateNames(rng, len(spawns))
	for i := range spawns {
		spawns[i].Name = names[i]
	}

	return spawns
}

// spawnScore evaluates how good a cell is to start on.
// Prefers: open flat ground with room to move, grass, a nearby shore.
func spawnScore(c *Cell) float64 {
	score := 0.0

	switch c.terrain {
	case TerrainGrass:
		score += 3.0
	case TerrainSand:
		score += 2.0
	case TerrainMud:
		score += 1.0
	case TerrainStone:
		score += 0.5
	default:
		return 0
	}

	// Bonus for walkable edges; cliffs box a unit in.
	for _, d := range hex.Directions {
		n := c.Neighbor(d)
		if n == nil || !n.explorable {
			continue
		}
		switch c.EdgeType(d) {
		case hex.Flat:
			score += 0.5
		case hex.Slope:
			score += 0.2
		}
	}

	// Bonus for a shore in view.
	if c.ViewElevation() > c.elevation {
		score += 0.5
	}

	return score
}

func tooClose(g *Grid, coord hex.Coordinates, existing []SpawnPoint, minDist int) bool {
	for _, s := range existing {
		if coord.DistanceTo(s.Coordinates, g.wrapSize) < minDist {
			return true
		}
	}
	return false
}

// generateNames produces procedural unit names by combining syllables.
func generateNames(rng *rand.Rand, count int) []string {
	prefixes := []string{
		"Iron", "Green", "Ash", "Stone", "Black", "Silver", "Red", "White",
		"Dark", "Bright", "High", "Old", "Far", "Deep", "Gold", "Frost",
		"Storm", "Thorn", "Oak", "Pine", "Copper", "River",
	}
	suffixes := []string{
		"guard", "riders", "scouts", "watch", "band", "company", "wardens",
		"lancers", "rangers", "hounds", "pikes", "shields", "walkers",
	}

	used := make(map[string]bool)
	names := make([]string, 0, count)

	for len(names) < count {
		name := prefixes[rng.Intn(len(prefixes))] + " " + suffixes[rng.Intn(len(suffixes))]
		if len(used) >= len(prefixes)*len(suffixes) {
			name = fmt.Sprintf("%s %d", name, len(names)+1)
		}
		if !used[name] {
			used[name] = true
			names = append(names, name)
		}
	}

	return names
}
