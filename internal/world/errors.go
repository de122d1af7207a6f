package world

import "errors"

var (
	// ErrInvalidMapSize is returned by CreateMap for dimensions that are not
	// positive multiples of the chunk size.
	ErrInvalidMapSize = errors.New("world: map size must be a positive multiple of the chunk size")

	// ErrCellNotFound is returned by coordinate, offset and index lookups
	// outside the map.
	ErrCellNotFound = errors.New("world: cell not found")

	// ErrNoPathFound means the search frontier emptied before reaching the
	// destination.
	ErrNoPathFound = errors.New("world: no path found")

	// ErrInvalidMove is returned when a unit is asked to enter a cell it
	// cannot occupy or to follow a broken path.
	ErrInvalidMove = errors.New("world: invalid move")

	// ErrUnsupportedVersion is returned by Load for unknown map headers.
	ErrUnsupportedVersion = errors.New("world: unsupported map version")
)
