// Package mesh holds engine-agnostic triangle meshes as parallel arrays and
// the vertex welding used to shrink generated geometry before it is handed
// to a renderer.
package mesh

import "github.com/talgya/hexgrid/internal/geom"

// Custom0Components is the number of floats per vertex in the Custom0
// edge-blend channel.
const Custom0Components = 4

// Mesh is a triangle list. Normals, UVs and Custom0 are optional; when
// present they hold one entry per vertex (Custom0 holds four floats per
// vertex).
type Mesh struct {
	Vertices []geom.Vec3
	Normals  []geom.Vec3
	UVs      []geom.Vec2
	Custom0  []float64
	Indices  []int
}

// TriangleCount returns len(Indices)/3.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Clear empties all channels, keeping capacity.
func (m *Mesh) Clear() {
	m.Vertices = m.Vertices[:0]
	m.Normals = m.Normals[:0]
	m.UVs = m.UVs[:0]
	m.Custom0 = m.Custom0[:0]
	m.Indices = m.Indices[:0]
}

// AddTriangle appends three vertices and the triangle that joins them.
func (m *Mesh) AddTriangle(v1, v2, v3 geom.Vec3) {
	base := len(m.Vertices)
	m.Vertices = append(m.Vertices, v1, v2, v3)
	m.Indices = append(m.Indices, base, base+1, base+2)
}

// AddQuad appends four vertices and two triangles.
func (m *Mesh) AddQuad(v1, v2, v3, v4 geom.Vec3) {
	base := len(m.Vertices)
	m.Vertices = append(m.Vertices, v1, v2, v3, v4)
	m.Indices = append(m.Indices, base, base+2, base+1, base+1, base+2, base+3)
}
