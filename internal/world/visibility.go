package world

import (
	"github.com/talgya/hexgrid/internal/hex"
)

// IncreaseVisibility adds one observer to every cell visible from center
// within rng steps. A cell becoming visible for the first time is explored
// for good.
func (g *Grid) IncreaseVisibility(center *Cell, rng int) {
	for _, i := range g.visibleCells(center, rng) {
		c := &g.cells[i]
		c.visibility++
		if c.visibility == 1 {
			c.explored = true
			g.notifyVisibility(i)
		}
	}
}

// DecreaseVisibility removes one observer from every cell visible from
// center within rng steps. Calls must pair with an earlier
// IncreaseVisibility with the same arguments; a counter that would drop
// below zero stays at zero and is reported.
func (g *Grid) DecreaseVisibility(center *Cell, rng int) {
	for _, i := range g.visibleCells(center, rng) {
		c := &g.cells[i]
		if c.visibility == 0 {
			g.underflows++
			g.log.Warn("visibility underflow", "cell", c.coordinates, "center", center.coordinates,
				"range", rng, "total", g.underflows)
			continue
		}
		c.visibility--
		if c.visibility == 0 {
			g.notifyVisibility(i)
		}
	}
}

// ResetVisibility drops every counter to zero. Explored flags stay.
func (g *Grid) ResetVisibility() {
	for i := range g.cells {
		if g.cells[i].visibility > 0 {
			g.cells[i].visibility = 0
			g.notifyVisibility(i)
		}
	}
}

// UnderflowCount returns how many unmatched visibility decreases were
// clamped since the grid was created.
func (g *Grid) UnderflowCount() int { return g.underflows }

// visibleCells expands from center in step order. The sight range grows with
// the center's view elevation and shrinks by every neighbor's own view
// elevation, so high ground blocks the view beyond it. Cells are only taken
// along shortest rings so the fill cannot wrap around obstacles.
func (g *Grid) visibleCells(center *Cell, rng int) []int {
	g.searchPhase += 2
	g.frontier.reset()

	rng += center.ViewElevation()
	center.searchPhase = g.searchPhase
	center.distance = 0
	center.heuristic = 0
	g.frontier.enqueue(center.index, 0)

	var visible []int
	for g.frontier.Len() > 0 {
		current := &g.cells[g.frontier.dequeue()]
		current.searchPhase++
		visible = append(visible, current.index)

		for _, d := range hex.Directions {
			n := current.Neighbor(d)
			if n == nil || n.searchPhase > g.searchPhase || !n.explorable {
				continue
			}
			distance := current.distance + 1
			if distance+n.ViewElevation() > rng ||
				distance > center.coordinates.DistanceTo(n.coordinates, g.wrapSize) {
				continue
			}

			if n.searchPhase < g.searchPhase {
				n.searchPhase = g.searchPhase
				n.distance = distance
				n.heuristic = 0
				g.frontier.enqueue(n.index, distance)
			} else if distance < n.distance {
				n.distance = distance
				g.frontier.enqueue(n.index, distance)
			}
		}
	}
	return visible
}
