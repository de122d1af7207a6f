package hex

import "github.com/talgya/hexgrid/internal/geom"

// Cell geometry.
const (
	OuterToInner  = 0.866025404
	InnerToOuter  = 1 / OuterToInner
	OuterRadius   = 10.0 // center to corner
	InnerRadius   = OuterRadius * OuterToInner
	InnerDiameter = InnerRadius * 2

	SolidFactor          = 0.7 // uniform region inside a cell
	BlendFactor          = 1 - SolidFactor
	WaterFactor          = 0.6
	WaterBlendFactor     = 1 - WaterFactor
	WaterElevationOffset = -0.5
	ElevationStep        = 3.0 // world height of one elevation level
)

// Noise sampling.
const (
	HashGridSize             = 256
	HashGridScale            = 0.25
	NoiseScale               = 0.003
	CellPerturbStrength      = 4.0
	ElevationPerturbStrength = 1.75
)

// Chunk size in cells. Map dimensions must be multiples of these.
const (
	ChunkSizeX = 5
	ChunkSizeZ = 5
)

var corners = [7]geom.Vec3{
	{X: 0, Z: OuterRadius},
	{X: InnerRadius, Z: 0.5 * OuterRadius},
	{X: InnerRadius, Z: -0.5 * OuterRadius},
	{X: 0, Z: -OuterRadius},
	{X: -InnerRadius, Z: -0.5 * OuterRadius},
	{X: -InnerRadius, Z: 0.5 * OuterRadius},
	{X: 0, Z: OuterRadius},
}

// FirstCorner is the counter-clockwise corner of the edge in direction d.
func FirstCorner(d Direction) geom.Vec3 { return corners[d] }

// SecondCorner is the clockwise corner of the edge in direction d.
func SecondCorner(d Direction) geom.Vec3 { return corners[d+1] }

func FirstSolidCorner(d Direction) geom.Vec3  { return corners[d].Scale(SolidFactor) }
func SecondSolidCorner(d Direction) geom.Vec3 { return corners[d+1].Scale(SolidFactor) }

// SolidEdgeMiddle is halfway between the two solid corners of d.
func SolidEdgeMiddle(d Direction) geom.Vec3 {
	return corners[d].Add(corners[d+1]).Scale(0.5 * SolidFactor)
}

func FirstWaterCorner(d Direction) geom.Vec3  { return corners[d].Scale(WaterFactor) }
func SecondWaterCorner(d Direction) geom.Vec3 { return corners[d+1].Scale(WaterFactor) }

// Bridge spans the blend region between a cell's solid edge and its neighbor's.
func Bridge(d Direction) geom.Vec3 {
	return corners[d].Add(corners[d+1]).Scale(BlendFactor)
}

// WaterBridge is Bridge for the water surface.
func WaterBridge(d Direction) geom.Vec3 {
	return corners[d].Add(corners[d+1]).Scale(WaterBlendFactor)
}
