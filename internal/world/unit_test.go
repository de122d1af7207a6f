package world

import (
	"errors"
	"testing"

	"github.com/talgya/hexgrid/internal/hex"
)

func TestAddUnitStartsVision(t *testing.T) {
	g := newTestGrid(t, 10, 10, false)
	u := NewUnit(walker{speed: 2, vision: 1, cost: 1}, "scout")
	cell := mustCell(t, g, 4, 4)

	if err := g.AddUnit(u, cell, 90); err != nil {
		t.Fatalf("AddUnit: %v", err)
	}
	if u.Location() != cell || cell.Unit() != u {
		t.Fatal("unit and cell not linked")
	}
	if u.Orientation() != 90 {
		t.Errorf("Orientation = %v", u.Orientation())
	}
	if p := u.Position(); p != cell.Position() {
		t.Errorf("Position = %v, want %v", p, cell.Position())
	}
	for _, d := range hex.Directions {
		if !cell.Neighbor(d).IsVisible() {
			t.Errorf("neighbor %s not visible", d)
		}
	}

	if err := g.AddUnit(u, mustCell(t, g, 1, 1), 0); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("second AddUnit error = %v", err)
	}
	other := NewUnit(walker{speed: 2, vision: 1, cost: 1}, "other")
	if err := g.AddUnit(other, cell, 0); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("AddUnit on occupied cell error = %v", err)
	}
	if len(g.Units()) != 1 {
		t.Errorf("Units = %d, want 1", len(g.Units()))
	}
}

func TestTravelMovesVision(t *testing.T) {
	g := newTestGrid(t, 10, 10, false)
	u := NewUnit(walker{speed: 3, vision: 1, cost: 1}, "scout")
	start := mustCell(t, g, 1, 4)
	if err := g.AddUnit(u, start, 0); err != nil {
		t.Fatal(err)
	}

	path, err := g.FindPath(start, mustCell(t, g, 5, 4), u)
	if err != nil {
		t.Fatal(err)
	}
	if err := u.Travel(path); err != nil {
		t.Fatalf("Travel: %v", err)
	}

	end := path[len(path)-1]
	if u.Location() != end || end.Unit() != u || start.Unit() != nil {
		t.Fatal("unit not moved to the end of the path")
	}
	if u.Orientation() != Bearing(hex.E) {
		t.Errorf("Orientation = %v, want %v", u.Orientation(), Bearing(hex.E))
	}
	if start.IsVisible() {
		t.Error("start still visible after leaving")
	}
	if !start.IsExplored() {
		t.Error("start no longer explored")
	}
	if end.Visibility() != 1 {
		t.Errorf("end visibility = %d, want 1", end.Visibility())
	}
	for _, d := range hex.Directions {
		if end.Neighbor(d).Visibility() != 1 {
			t.Errorf("end neighbor %s visibility = %d", d, end.Neighbor(d).Visibility())
		}
	}
	if g.UnderflowCount() != 0 {
		t.Errorf("UnderflowCount = %d", g.UnderflowCount())
	}
}

func TestTravelRejectsBrokenPath(t *testing.T) {
	g := newTestGrid(t, 10, 10, false)
	u := NewUnit(walker{speed: 3, vision: 1, cost: 1}, "scout")
	start := mustCell(t, g, 1, 4)
	if err := g.AddUnit(u, start, 0); err != nil {
		t.Fatal(err)
	}
	before := visibilitySnapshot(g)

	tests := []struct {
		name string
		path []*Cell
	}{
		{"empty", nil},
		{"wrong start", []*Cell{mustCell(t, g, 2, 4), mustCell(t, g, 3, 4)}},
		{"gap", []*Cell{start, mustCell(t, g, 2, 4), mustCell(t, g, 4, 4)}},
	}
	water := mustCell(t, g, 2, 4)
	for _, tt := range tests {
		if err := u.Travel(tt.path); !errors.Is(err, ErrInvalidMove) {
			t.Errorf("%s: error = %v, want ErrInvalidMove", tt.name, err)
		}
	}
	water.SetWaterLevel(1)
	if err := u.Travel([]*Cell{start, water}); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("into water: error = %v", err)
	}

	cliff := mustCell(t, g, 1, 5)
	cliff.SetElevation(5)
	d, _ := directionTo(start, cliff)
	if e := start.EdgeType(d); e != hex.Cliff {
		t.Fatalf("edge to raised cell = %v, want cliff", e)
	}
	if err := u.Travel([]*Cell{start, cliff}); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("up a cliff: error = %v", err)
	}
	if cliff.Unit() != nil {
		t.Error("unit landed on the cliff cell")
	}

	if u.Location() != start {
		t.Error("unit moved on a rejected path")
	}
	after := visibilitySnapshot(g)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("cell %d visibility changed on a rejected path", i)
		}
	}
}

func TestDieReleasesVision(t *testing.T) {
	g := newTestGrid(t, 10, 10, false)
	u := NewUnit(walker{speed: 3, vision: 2, cost: 1}, "scout")
	cell := mustCell(t, g, 4, 4)
	if err := g.AddUnit(u, cell, 0); err != nil {
		t.Fatal(err)
	}

	u.Die()
	if cell.Unit() != nil || u.Location() != nil {
		t.Fatal("unit still on the map")
	}
	g.Cells(func(c *Cell) {
		if c.IsVisible() {
			t.Fatalf("%s visible after the only observer died", c.Coordinates())
		}
	})
	if len(g.Units()) != 0 {
		t.Errorf("Units = %d", len(g.Units()))
	}
	u.Die()
}

func TestValidateLocationFollowsElevation(t *testing.T) {
	g := newTestGrid(t, 10, 10, false)
	u := NewUnit(walker{speed: 3, vision: 1, cost: 1}, "scout")
	cell := mustCell(t, g, 4, 4)
	if err := g.AddUnit(u, cell, 0); err != nil {
		t.Fatal(err)
	}
	cell.SetElevation(2)
	if u.Position().Y != 2*hex.ElevationStep {
		t.Errorf("unit Y = %v after elevation change", u.Position().Y)
	}
}
