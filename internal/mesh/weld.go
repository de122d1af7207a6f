package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/talgya/hexgrid/internal/geom"
)

var (
	ErrInvalidTolerance = errors.New("mesh: tolerance must be positive")
	ErrIndexOutOfRange  = errors.New("mesh: triangle index out of range")
	ErrNotTriangles     = errors.New("mesh: index count is not a multiple of 3")
)

// DefaultTolerance is the weld distance used when callers have no better
// value.
const DefaultTolerance = 0.001

type weldKey struct {
	x, y, z int64
}

func quantize(v geom.Vec3, tolerance float64) weldKey {
	return weldKey{
		x: int64(math.Round(v.X / tolerance)),
		y: int64(math.Round(v.Y / tolerance)),
		z: int64(math.Round(v.Z / tolerance)),
	}
}

// Weld merges vertices whose positions round to the same multiple of
// tolerance on every axis. The first vertex seen for a key is kept as is.
// The index buffer keeps its length and winding; only values change.
func Weld(vertices []geom.Vec3, indices []int, tolerance float64) ([]geom.Vec3, []int, error) {
	welded, remap, err := weldVertices(vertices, tolerance)
	if err != nil {
		return nil, nil, err
	}
	out, err := remapIndices(indices, remap)
	if err != nil {
		return nil, nil, err
	}
	return welded, out, nil
}

// weldVertices returns the representatives and the table from original
// vertex index to representative index.
func weldVertices(vertices []geom.Vec3, tolerance float64) ([]geom.Vec3, []int, error) {
	if !(tolerance > 0) || math.IsInf(tolerance, 1) {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidTolerance, tolerance)
	}

	seen := make(map[weldKey]int, len(vertices))
	welded := make([]geom.Vec3, 0, len(vertices))
	remap := make([]int, len(vertices))

	for i, v := range vertices {
		k := quantize(v, tolerance)
		idx, ok := seen[k]
		if !ok {
			idx = len(welded)
			welded = append(welded, v)
			seen[k] = idx
		}
		remap[i] = idx
	}
	return welded, remap, nil
}

func remapIndices(indices []int, remap []int) ([]int, error) {
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrNotTriangles, len(indices))
	}
	out := make([]int, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(remap) {
			return nil, fmt.Errorf("%w: index %d at %d, %d vertices", ErrIndexOutOfRange, idx, i, len(remap))
		}
		out[i] = remap[idx]
	}
	return out, nil
}

// Weld returns a copy of m with coincident vertices merged. Optional
// channels keep the values of each representative vertex.
func (m *Mesh) Weld(tolerance float64) (*Mesh, error) {
	welded, remap, err := weldVertices(m.Vertices, tolerance)
	if err != nil {
		return nil, err
	}
	indices, err := remapIndices(m.Indices, remap)
	if err != nil {
		return nil, err
	}

	out := &Mesh{Vertices: welded, Indices: indices}

	// Representative of output vertex j is the first original i with remap[i] == j.
	first := make([]int, len(welded))
	for i := range first {
		first[i] = -1
	}
	for i, j := range remap {
		if first[j] < 0 {
			first[j] = i
		}
	}

	if len(m.Normals) == len(m.Vertices) && len(m.Normals) > 0 {
		out.Normals = make([]geom.Vec3, len(welded))
		for j, i := range first {
			out.Normals[j] = m.Normals[i]
		}
	}
	if len(m.UVs) == len(m.Vertices) && len(m.UVs) > 0 {
		out.UVs = make([]geom.Vec2, len(welded))
		for j, i := range first {
			out.UVs[j] = m.UVs[i]
		}
	}
	if len(m.Custom0) == len(m.Vertices)*Custom0Components && len(m.Custom0) > 0 {
		out.Custom0 = make([]float64, len(welded)*Custom0Components)
		for j, i := range first {
			copy(out.Custom0[j*Custom0Components:(j+1)*Custom0Components],
				m.Custom0[i*Custom0Components:(i+1)*Custom0Components])
		}
	}
	return out, nil
}
