package hex

// Direction names one of the six cell edges, clockwise from north-east.
type Direction int

const (
	NE Direction = iota
	E
	SE
	SW
	W
	NW
)

// Directions lists all six directions in order.
var Directions = [6]Direction{NE, E, SE, SW, W, NW}

// directionVectors holds the cube step for each direction.
var directionVectors = [6]Coordinates{
	NE: {X: 0, Z: 1},
	E:  {X: 1, Z: 0},
	SE: {X: 1, Z: -1},
	SW: {X: 0, Z: -1},
	W:  {X: -1, Z: 0},
	NW: {X: -1, Z: 1},
}

// Opposite returns the direction pointing back across the same edge.
func (d Direction) Opposite() Direction {
	if d < 3 {
		return d + 3
	}
	return d - 3
}

// Previous returns the counter-clockwise neighbor direction.
func (d Direction) Previous() Direction {
	if d == NE {
		return NW
	}
	return d - 1
}

// Next returns the clockwise neighbor direction.
func (d Direction) Next() Direction {
	if d == NW {
		return NE
	}
	return d + 1
}

// Valid reports whether d is one of the six directions.
func (d Direction) Valid() bool {
	return d >= NE && d <= NW
}

func (d Direction) String() string {
	switch d {
	case NE:
		return "NE"
	case E:
		return "E"
	case SE:
		return "SE"
	case SW:
		return "SW"
	case W:
		return "W"
	case NW:
		return "NW"
	default:
		return "?"
	}
}
