package hex

// EdgeType classifies the elevation step between two adjacent cells.
type EdgeType uint8

const (
	Flat  EdgeType = iota // same elevation
	Slope                 // one step up or down
	Cliff                 // two or more steps
)

// GetEdgeType returns the edge type between two elevations. It is symmetric.
func GetEdgeType(elevationA, elevationB int) EdgeType {
	if elevationA == elevationB {
		return Flat
	}
	delta := elevationB - elevationA
	if delta == 1 || delta == -1 {
		return Slope
	}
	return Cliff
}

func (t EdgeType) String() string {
	switch t {
	case Flat:
		return "flat"
	case Slope:
		return "slope"
	case Cliff:
		return "cliff"
	default:
		return "unknown"
	}
}
