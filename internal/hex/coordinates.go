// Package hex provides cube coordinates, directions and the fixed metrics of
// a pointy-top hex cell. The third cube coordinate is always derived:
// Y = -X - Z.
package hex

import (
	"errors"
	"fmt"
	"math"

	"github.com/talgya/hexgrid/internal/geom"
)

// ErrInvalidCoordinate is returned when a cube triple does not sum to zero.
var ErrInvalidCoordinate = errors.New("hex: invalid coordinate")

// Coordinates is a cell position in cube space. Only X and Z are stored, so
// equality and map keys use (X, Z).
type Coordinates struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// New returns the coordinates for cube (x, -x-z, z).
func New(x, z int) Coordinates {
	return Coordinates{X: x, Z: z}
}

// FromCube validates a full cube triple.
func FromCube(x, y, z int) (Coordinates, error) {
	if x+y+z != 0 {
		return Coordinates{}, fmt.Errorf("%w: (%d, %d, %d)", ErrInvalidCoordinate, x, y, z)
	}
	return Coordinates{X: x, Z: z}, nil
}

// FromOffset converts an offset (column, row) pair. Odd rows are shifted half
// a cell to the east.
func FromOffset(col, row int) Coordinates {
	return Coordinates{X: col - row/2, Z: row}
}

// FromOffsetWrapped is FromOffset followed by folding the column back into
// [0, wrapSize) when wrapSize > 0.
func FromOffsetWrapped(col, row, wrapSize int) Coordinates {
	if wrapSize > 0 {
		col = WrapColumn(col, wrapSize)
	}
	return FromOffset(col, row)
}

// WrapColumn folds an offset column into [0, wrapSize).
func WrapColumn(col, wrapSize int) int {
	col %= wrapSize
	if col < 0 {
		col += wrapSize
	}
	return col
}

// FromPosition returns the coordinates of the cell containing a world
// position, ignoring perturbation.
func FromPosition(p geom.Vec3) Coordinates {
	x := p.X / InnerDiameter
	y := -x
	offset := p.Z / (OuterRadius * 3)
	x -= offset
	y -= offset

	ix := int(math.Round(x))
	iy := int(math.Round(y))
	iz := int(math.Round(-x - y))

	if ix+iy+iz != 0 {
		dx := math.Abs(x - float64(ix))
		dy := math.Abs(y - float64(iy))
		dz := math.Abs(-x - y - float64(iz))
		if dx > dy && dx > dz {
			ix = -iy - iz
		} else if dz > dy {
			iz = -ix - iy
		}
	}
	return Coordinates{X: ix, Z: iz}
}

// Y returns the derived cube coordinate.
func (c Coordinates) Y() int {
	return -c.X - c.Z
}

// Offset returns the (column, row) pair for c.
func (c Coordinates) Offset() (col, row int) {
	return c.X + c.Z/2, c.Z
}

// Neighbor returns the adjacent coordinates in direction d.
func (c Coordinates) Neighbor(d Direction) Coordinates {
	v := directionVectors[d]
	return Coordinates{X: c.X + v.X, Z: c.Z + v.Z}
}

// Position returns the unperturbed world-space center of the cell at
// elevation zero.
func (c Coordinates) Position() geom.Vec3 {
	return geom.Vec3{
		X: (float64(c.X) + float64(c.Z)*0.5) * InnerDiameter,
		Z: float64(c.Z) * OuterRadius * 1.5,
	}
}

// DistanceTo returns the number of steps between c and o. When wrapSize > 0
// the map wraps east-west and o is also tested one wrap to either side.
func (c Coordinates) DistanceTo(o Coordinates, wrapSize int) int {
	d := cubeDistance(c, o)
	if wrapSize > 0 {
		d = min(d,
			cubeDistance(c, Coordinates{X: o.X + wrapSize, Z: o.Z}),
			cubeDistance(c, Coordinates{X: o.X - wrapSize, Z: o.Z}),
		)
	}
	return d
}

func (c Coordinates) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.X, c.Y(), c.Z)
}

func cubeDistance(a, b Coordinates) int {
	return max(abs(a.X-b.X), abs(a.Y()-b.Y()), abs(a.Z-b.Z))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
