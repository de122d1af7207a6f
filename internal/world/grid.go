package world

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/zyedidia/generic/mapset"

	"github.com/talgya/hexgrid/internal/geom"
	"github.com/talgya/hexgrid/internal/hex"
	"github.com/talgya/hexgrid/internal/noise"
)

// Listener receives change notifications for the renderer. Chunk changes are
// batched and delivered by Grid.Refresh; visibility changes are immediate.
type Listener interface {
	ChunkChanged(chunk int)
	CellVisibilityChanged(cell int)
}

type nopListener struct{}

func (nopListener) ChunkChanged(int)          {}
func (nopListener) CellVisibilityChanged(int) {}

// Grid owns every cell of the map and the state shared by searches over it.
// It is not safe for concurrent use.
type Grid struct {
	log      *slog.Logger
	base     *noise.Field
	field    *noise.Field
	listener Listener

	cellCountX, cellCountZ   int
	chunkCountX, chunkCountZ int
	wrapSize                 int

	cells []Cell
	units []*Unit
	dirty mapset.Set[int]

	searchPhase int
	frontier    *frontier

	path pathState

	underflows int
}

// NewGrid returns an empty grid. field may be nil, in which case cell
// positions are not perturbed. log may be nil.
func NewGrid(field *noise.Field, log *slog.Logger) *Grid {
	if log == nil {
		log = slog.Default()
	}
	return &Grid{
		log:      log,
		base:     field,
		field:    field,
		listener: nopListener{},
		dirty:    mapset.New[int](),
		path:     pathState{from: -1, to: -1},
	}
}

// SetListener installs l, or a no-op listener when l is nil.
func (g *Grid) SetListener(l Listener) {
	if l == nil {
		l = nopListener{}
	}
	g.listener = l
}

func (g *Grid) CellCountX() int { return g.cellCountX }

func (g *Grid) CellCountZ() int { return g.cellCountZ }

func (g *Grid) ChunkCountX() int { return g.chunkCountX }

func (g *Grid) ChunkCountZ() int { return g.chunkCountZ }

// CellCount returns the number of cells in the current map.
func (g *Grid) CellCount() int { return len(g.cells) }

// WrapSize is the column count when the map wraps east-west, else 0.
func (g *Grid) WrapSize() int { return g.wrapSize }

func (g *Grid) Wrapping() bool { return g.wrapSize > 0 }

// Field returns the noise field in use for the current map.
func (g *Grid) Field() *noise.Field { return g.field }

// CreateMap replaces the current map with x by z flat, explorable cells.
// On error the previous map is left as it was.
func (g *Grid) CreateMap(x, z int, wrapping bool) error {
	if x <= 0 || x%hex.ChunkSizeX != 0 || z <= 0 || z%hex.ChunkSizeZ != 0 {
		return fmt.Errorf("%w: %dx%d (chunk %dx%d)", ErrInvalidMapSize, x, z, hex.ChunkSizeX, hex.ChunkSizeZ)
	}

	g.ClearPath()
	g.clearUnits()

	g.cellCountX, g.cellCountZ = x, z
	g.chunkCountX, g.chunkCountZ = x/hex.ChunkSizeX, z/hex.ChunkSizeZ
	g.wrapSize = 0
	if wrapping {
		g.wrapSize = x
	}
	if g.base != nil {
		g.field = g.base.WithWrapSize(g.wrapSize)
	}

	g.cells = make([]Cell, x*z)
	g.frontier = newFrontier(len(g.cells))
	g.dirty = mapset.New[int]()
	g.searchPhase = 0

	for row, i := 0, 0; row < z; row++ {
		for col := 0; col < x; col++ {
			g.createCell(col, row, i)
			i++
		}
	}
	for i := range g.cells {
		c := &g.cells[i]
		for _, d := range [...]hex.Direction{hex.E, hex.NE, hex.NW} {
			if j, ok := g.indexOf(c.coordinates.Neighbor(d)); ok {
				g.SetNeighbor(c, d, &g.cells[j])
			}
		}
	}
	for chunk := 0; chunk < g.chunkCountX*g.chunkCountZ; chunk++ {
		g.dirty.Put(chunk)
	}

	g.log.Info("map created", "cells_x", x, "cells_z", z, "wrapping", wrapping,
		"chunks", g.chunkCountX*g.chunkCountZ)
	return nil
}

func (g *Grid) createCell(col, row, i int) {
	g.cells[i] = Cell{
		grid:        g,
		coordinates: hex.FromOffset(col, row),
		index:       i,
		columnIndex: col / hex.ChunkSizeX,
		chunkIndex:  col/hex.ChunkSizeX + row/hex.ChunkSizeZ*g.chunkCountX,
		explorable:  true,
		neighbors:   [6]int{-1, -1, -1, -1, -1, -1},
		pathFrom:    -1,
		unit:        -1,
	}
}

// SetNeighbor links a and b in both directions: b is a's neighbor towards d
// and a is b's neighbor towards the opposite direction.
func (g *Grid) SetNeighbor(a *Cell, d hex.Direction, b *Cell) {
	a.neighbors[d] = b.index
	b.neighbors[d.Opposite()] = a.index
}

// Neighbor returns c's neighbor in direction d, or nil.
func (g *Grid) Neighbor(c *Cell, d hex.Direction) *Cell {
	return c.Neighbor(d)
}

// indexOf resolves coordinates to a cell index, wrapping columns on a
// wrapping map.
func (g *Grid) indexOf(c hex.Coordinates) (int, bool) {
	col, row := c.Offset()
	if row < 0 || row >= g.cellCountZ {
		return 0, false
	}
	if g.wrapSize > 0 {
		col = hex.WrapColumn(col, g.wrapSize)
	} else if col < 0 || col >= g.cellCountX {
		return 0, false
	}
	return col + row*g.cellCountX, true
}

// CellByCoordinates returns the cell at c. On a wrapping map an X outside
// the map is wrapped into range, so only rows can be out of bounds there.
func (g *Grid) CellByCoordinates(c hex.Coordinates) (*Cell, error) {
	i, ok := g.indexOf(c)
	if !ok {
		return nil, fmt.Errorf("%w: coordinates %s", ErrCellNotFound, c)
	}
	return &g.cells[i], nil
}

// CellByOffset returns the cell at offset column and row.
func (g *Grid) CellByOffset(col, row int) (*Cell, error) {
	if col < 0 || col >= g.cellCountX || row < 0 || row >= g.cellCountZ {
		return nil, fmt.Errorf("%w: offset (%d, %d)", ErrCellNotFound, col, row)
	}
	return &g.cells[col+row*g.cellCountX], nil
}

// CellByIndex returns the cell with linear index i.
func (g *Grid) CellByIndex(i int) (*Cell, error) {
	if i < 0 || i >= len(g.cells) {
		return nil, fmt.Errorf("%w: index %d", ErrCellNotFound, i)
	}
	return &g.cells[i], nil
}

// CellAt returns the cell nearest to a world position. Rows are clamped,
// columns are wrapped or clamped, so the result is nil only when no map has
// been created.
func (g *Grid) CellAt(p geom.Vec3) *Cell {
	if len(g.cells) == 0 {
		return nil
	}
	col, row := hex.FromPosition(p).Offset()
	row = min(max(row, 0), g.cellCountZ-1)
	if g.wrapSize > 0 {
		col = hex.WrapColumn(col, g.wrapSize)
	} else {
		col = min(max(col, 0), g.cellCountX-1)
	}
	return &g.cells[col+row*g.cellCountX]
}

// CellPosition returns the perturbed world center of c.
func (g *Grid) CellPosition(c *Cell) geom.Vec3 {
	return c.Position()
}

// CenterMap returns the X offset to apply to each chunk column so that a
// wrapping map is centered on xPosition. Without wrapping every offset is 0.
func (g *Grid) CenterMap(xPosition float64) []float64 {
	offsets := make([]float64, g.chunkCountX)
	if g.wrapSize == 0 {
		return offsets
	}
	columnWidth := hex.InnerDiameter * hex.ChunkSizeX
	center := int(xPosition / columnWidth)
	minColumn := center - g.chunkCountX/2
	maxColumn := center + g.chunkCountX/2
	for i := range offsets {
		switch {
		case i < minColumn:
			offsets[i] = float64(g.chunkCountX) * columnWidth
		case i > maxColumn:
			offsets[i] = -float64(g.chunkCountX) * columnWidth
		}
	}
	return offsets
}

// Refresh delivers each dirty chunk to the listener once, in ascending order,
// and returns them.
func (g *Grid) Refresh() []int {
	if g.dirty.Size() == 0 {
		return nil
	}
	chunks := make([]int, 0, g.dirty.Size())
	g.dirty.Each(func(chunk int) {
		chunks = append(chunks, chunk)
	})
	slices.Sort(chunks)
	g.dirty = mapset.New[int]()
	for _, chunk := range chunks {
		g.listener.ChunkChanged(chunk)
	}
	return chunks
}

func (g *Grid) markDirty(chunk int) {
	g.dirty.Put(chunk)
}

func (g *Grid) notifyVisibility(cell int) {
	g.listener.CellVisibilityChanged(cell)
}

// Cells calls fn for every cell in index order.
func (g *Grid) Cells(fn func(c *Cell)) {
	for i := range g.cells {
		fn(&g.cells[i])
	}
}
