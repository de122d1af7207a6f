package world

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/talgya/hexgrid/internal/geom"
	"github.com/talgya/hexgrid/internal/hex"
	"github.com/talgya/hexgrid/internal/noise"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGrid(t *testing.T, x, z int, wrapping bool) *Grid {
	t.Helper()
	g := NewGrid(nil, quietLogger())
	if err := g.CreateMap(x, z, wrapping); err != nil {
		t.Fatalf("CreateMap(%d, %d, %v): %v", x, z, wrapping, err)
	}
	return g
}

func mustCell(t *testing.T, g *Grid, col, row int) *Cell {
	t.Helper()
	c, err := g.CellByOffset(col, row)
	if err != nil {
		t.Fatalf("CellByOffset(%d, %d): %v", col, row, err)
	}
	return c
}

type recorder struct {
	chunks []int
	cells  []int
}

func (r *recorder) ChunkChanged(chunk int)         { r.chunks = append(r.chunks, chunk) }
func (r *recorder) CellVisibilityChanged(cell int) { r.cells = append(r.cells, cell) }

func TestCreateMapRejectsUnalignedSize(t *testing.T) {
	g := newTestGrid(t, 10, 5, false)

	tests := []struct{ x, z int }{
		{0, 5}, {5, 0}, {-5, 5}, {7, 5}, {10, 6},
	}
	for _, tt := range tests {
		if err := g.CreateMap(tt.x, tt.z, false); !errors.Is(err, ErrInvalidMapSize) {
			t.Errorf("CreateMap(%d, %d) error = %v, want ErrInvalidMapSize", tt.x, tt.z, err)
		}
	}
	if g.CellCountX() != 10 || g.CellCountZ() != 5 || g.CellCount() != 50 {
		t.Errorf("previous map changed: %dx%d, %d cells", g.CellCountX(), g.CellCountZ(), g.CellCount())
	}
}

func TestIndexMatchesOffset(t *testing.T) {
	g := newTestGrid(t, 10, 15, false)
	for row := 0; row < g.CellCountZ(); row++ {
		for col := 0; col < g.CellCountX(); col++ {
			c := mustCell(t, g, col, row)
			if c.Index() != col+row*g.CellCountX() {
				t.Fatalf("cell (%d, %d) index = %d", col, row, c.Index())
			}
			gc, gr := c.Coordinates().Offset()
			if gc != col || gr != row {
				t.Fatalf("cell (%d, %d) coordinates give offset (%d, %d)", col, row, gc, gr)
			}
			if c.ChunkIndex() != col/hex.ChunkSizeX+row/hex.ChunkSizeZ*g.ChunkCountX() {
				t.Fatalf("cell (%d, %d) chunk = %d", col, row, c.ChunkIndex())
			}
		}
	}
}

func TestNeighborSymmetry(t *testing.T) {
	for _, wrapping := range []bool{false, true} {
		g := newTestGrid(t, 10, 10, wrapping)
		// Uneven terrain so edge types differ.
		g.Cells(func(c *Cell) {
			col, row := c.Coordinates().Offset()
			c.SetElevation((col*7 + row*3) % 4)
		})

		g.Cells(func(c *Cell) {
			for _, d := range hex.Directions {
				n := c.Neighbor(d)
				if n == nil {
					continue
				}
				if back := n.Neighbor(d.Opposite()); back != c {
					t.Fatalf("wrap=%v: %s -%s-> %s but back link is %v", wrapping, c.Coordinates(), d, n.Coordinates(), back)
				}
				if c.EdgeTypeTo(n) != n.EdgeTypeTo(c) {
					t.Fatalf("wrap=%v: edge type asymmetric between %s and %s", wrapping, c.Coordinates(), n.Coordinates())
				}
				if c.EdgeType(d) != n.EdgeType(d.Opposite()) {
					t.Fatalf("wrap=%v: directional edge type asymmetric", wrapping)
				}
				if got := c.Coordinates().DistanceTo(n.Coordinates(), g.WrapSize()); got != 1 {
					t.Fatalf("wrap=%v: neighbor distance %d", wrapping, got)
				}
			}
		})
	}
}

func TestEdgeCellsWithoutWrap(t *testing.T) {
	g := newTestGrid(t, 10, 10, false)
	corner := mustCell(t, g, 0, 0)

	count := 0
	for _, d := range hex.Directions {
		if corner.Neighbor(d) != nil {
			count++
		}
	}
	if count != 2 {
		t.Errorf("corner cell has %d neighbors, want 2", count)
	}
	if corner.Neighbor(hex.W) != nil {
		t.Errorf("corner cell has a west neighbor without wrapping")
	}

	inner := mustCell(t, g, 4, 4)
	for _, d := range hex.Directions {
		if inner.Neighbor(d) == nil {
			t.Errorf("inner cell missing neighbor %s", d)
		}
	}
}

func TestWrapLinksOuterColumns(t *testing.T) {
	g := newTestGrid(t, 10, 10, true)
	for row := 0; row < 10; row++ {
		west := mustCell(t, g, 0, row)
		east := mustCell(t, g, 9, row)
		if west.Neighbor(hex.W) != east {
			t.Errorf("row %d: west neighbor of column 0 is not column 9", row)
		}
		if east.Neighbor(hex.E) != west {
			t.Errorf("row %d: east neighbor of column 9 is not column 0", row)
		}
	}
	if g.WrapSize() != 10 || !g.Wrapping() {
		t.Errorf("WrapSize = %d", g.WrapSize())
	}
}

func TestLookups(t *testing.T) {
	g := newTestGrid(t, 10, 10, false)

	if _, err := g.CellByOffset(10, 0); !errors.Is(err, ErrCellNotFound) {
		t.Errorf("CellByOffset out of range error = %v", err)
	}
	if _, err := g.CellByIndex(100); !errors.Is(err, ErrCellNotFound) {
		t.Errorf("CellByIndex out of range error = %v", err)
	}
	if _, err := g.CellByCoordinates(hex.New(-1, 0)); !errors.Is(err, ErrCellNotFound) {
		t.Errorf("CellByCoordinates out of range error = %v", err)
	}

	want := mustCell(t, g, 3, 7)
	if c, err := g.CellByCoordinates(want.Coordinates()); err != nil || c != want {
		t.Errorf("CellByCoordinates(%s) = %v, %v", want.Coordinates(), c, err)
	}
	if c, err := g.CellByIndex(want.Index()); err != nil || c != want {
		t.Errorf("CellByIndex(%d) = %v, %v", want.Index(), c, err)
	}
	if c := g.CellAt(want.Coordinates().Position()); c != want {
		t.Errorf("CellAt(center of %s) = %s", want.Coordinates(), c.Coordinates())
	}

	// Far outside the map the nearest edge cell is returned.
	far := g.CellAt(geom.Vec3{X: 1e6, Z: -1e6})
	if far == nil {
		t.Fatal("CellAt returned nil")
	}
	if col, row := far.Coordinates().Offset(); col != 9 || row != 0 {
		t.Errorf("CellAt far south-east = (%d, %d), want (9, 0)", col, row)
	}
}

func TestCellAtWrapsColumns(t *testing.T) {
	g := newTestGrid(t, 10, 10, true)
	p := mustCell(t, g, 9, 2).Coordinates().Position()
	p.X -= 10 * hex.InnerDiameter
	if col, row := g.CellAt(p).Coordinates().Offset(); col != 9 || row != 2 {
		t.Errorf("CellAt one wrap west = (%d, %d), want (9, 2)", col, row)
	}
}

func TestViewElevation(t *testing.T) {
	g := newTestGrid(t, 10, 10, false)
	shore := mustCell(t, g, 4, 4)
	inland := mustCell(t, g, 7, 7)
	sea := shore.Neighbor(hex.E)

	sea.SetWaterLevel(2)
	shore.SetElevation(1)
	inland.SetElevation(1)

	if !sea.IsUnderwater() {
		t.Fatal("sea cell not underwater")
	}
	if got := shore.ViewElevation(); got != 2 {
		t.Errorf("shore ViewElevation = %d, want 2", got)
	}
	if got := inland.ViewElevation(); got != 1 {
		t.Errorf("inland ViewElevation = %d, want 1", got)
	}
	if got := sea.ViewElevation(); got != 2 {
		t.Errorf("sea ViewElevation = %d, want water level 2", got)
	}
	if got, want := sea.WaterSurfaceY(), 1.5*hex.ElevationStep; got != want {
		t.Errorf("WaterSurfaceY = %v, want %v", got, want)
	}
}

func TestRefreshDeliversDirtyChunksOnce(t *testing.T) {
	g := newTestGrid(t, 10, 10, false)
	rec := &recorder{}
	g.SetListener(rec)

	if got := g.Refresh(); len(got) != 4 {
		t.Fatalf("first Refresh = %v, want all 4 chunks", got)
	}
	if got := g.Refresh(); got != nil {
		t.Fatalf("second Refresh = %v, want nothing", got)
	}

	// Column 4 borders chunk column 1; row 2 stays in chunk row 0.
	c := mustCell(t, g, 4, 2)
	c.SetElevation(1)
	c.SetElevation(2)
	got := g.Refresh()
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("Refresh after border edit = %v, want [0 1]", got)
	}

	rec.chunks = nil
	c.SetTerrainTypeIndex(TerrainStone)
	g.Refresh()
	if len(rec.chunks) != 1 || rec.chunks[0] != 0 {
		t.Errorf("terrain edit chunks = %v, want [0]", rec.chunks)
	}
}

func TestSetElevationDropsSteepRoads(t *testing.T) {
	g := newTestGrid(t, 10, 10, false)
	a := mustCell(t, g, 4, 4)
	b := a.Neighbor(hex.E)

	if !a.AddRoad(hex.E) {
		t.Fatal("AddRoad on flat edge failed")
	}
	if !b.HasRoadThroughEdge(hex.W) {
		t.Fatal("road not mirrored on neighbor")
	}
	b.SetElevation(1)
	if !a.HasRoadThroughEdge(hex.E) {
		t.Fatal("road removed on a slope")
	}
	b.SetElevation(2)
	if a.HasRoadThroughEdge(hex.E) || b.HasRoadThroughEdge(hex.W) {
		t.Error("road kept across a cliff")
	}
	if a.AddRoad(hex.E) {
		t.Error("AddRoad across a cliff succeeded")
	}

	a.AddRoad(hex.W)
	a.AddRoad(hex.NE)
	a.RemoveRoads()
	if a.HasRoads() || a.Neighbor(hex.W).HasRoads() {
		t.Error("RemoveRoads left roads behind")
	}
}

func TestCenterMap(t *testing.T) {
	g := newTestGrid(t, 20, 5, false)
	for i, off := range g.CenterMap(0) {
		if off != 0 {
			t.Errorf("non-wrapping column %d offset %v", i, off)
		}
	}

	g = newTestGrid(t, 20, 5, true)
	width := hex.InnerDiameter * hex.ChunkSizeX
	offsets := g.CenterMap(0.5 * width)
	if len(offsets) != 4 {
		t.Fatalf("offsets = %v", offsets)
	}
	// Centered on column 0: columns 0..2 stay, column 3 moves west.
	want := []float64{0, 0, 0, -4 * width}
	for i := range want {
		if offsets[i] != want[i] {
			t.Errorf("column %d offset = %v, want %v", i, offsets[i], want[i])
		}
	}
}

func TestCellPositionUsesField(t *testing.T) {
	src := noise.GenerateSource(3, 32)
	g := NewGrid(noise.NewField(3, src, 0), quietLogger())
	if err := g.CreateMap(10, 10, true); err != nil {
		t.Fatal(err)
	}
	if g.Field().WrapSize() != 10 {
		t.Errorf("field wrap size = %d, want 10", g.Field().WrapSize())
	}
	c := mustCell(t, g, 3, 3)
	c.SetElevation(2)
	p := g.CellPosition(c)
	base := 2 * hex.ElevationStep
	if p.Y < base-hex.ElevationPerturbStrength || p.Y > base+hex.ElevationPerturbStrength {
		t.Errorf("position Y = %v, want within %v of %v", p.Y, hex.ElevationPerturbStrength, base)
	}
	if p.X != c.Coordinates().Position().X || p.Z != c.Coordinates().Position().Z {
		t.Errorf("position XZ moved: %v", p)
	}
}

func TestCellByCoordinatesWrapsColumns(t *testing.T) {
	g := newTestGrid(t, 10, 5, true)
	want := mustCell(t, g, 0, 2)
	shifted := want.Coordinates()
	shifted.X += 10
	if c, err := g.CellByCoordinates(shifted); err != nil || c != want {
		t.Errorf("CellByCoordinates(%s) = %v, %v; want column 0", shifted, c, err)
	}
	if _, err := g.CellByCoordinates(hex.New(0, 5)); !errors.Is(err, ErrCellNotFound) {
		t.Errorf("row out of range error = %v", err)
	}

	flat := newTestGrid(t, 10, 5, false)
	if _, err := flat.CellByCoordinates(shifted); !errors.Is(err, ErrCellNotFound) {
		t.Errorf("non-wrapping error = %v, want ErrCellNotFound", err)
	}
}
