package mesh

import (
	"math"

	"github.com/talgya/hexgrid/internal/geom"
)

// Sphere builds a UV sphere with rings+1 rows of segments vertices. Every
// vertex of a pole row sits on the pole, which makes it a handy input for
// Weld. Custom0 carries a two-way blend weight around the
// ring.
func Sphere(rings, segments int, radius float64) *Mesh {
	m := &Mesh{}
	if rings < 1 || segments < 3 {
		return m
	}

	thisRow, prevRow, point := 0, 0, 0
	for i := 0; i <= rings; i++ {
		v := float64(i) / float64(rings)
		w := math.Sin(math.Pi * v)
		y := math.Cos(math.Pi * v)

		for j := 0; j < segments; j++ {
			ringRatio := float64(j) / float64(segments) * math.Pi
			u := float64(j) / float64(segments)
			x := math.Sin(u * math.Pi * 2)
			z := math.Cos(u * math.Pi * 2)
			vert := geom.Vec3{X: x * radius * w, Y: y * radius, Z: z * radius * w}

			m.Vertices = append(m.Vertices, vert)
			m.Normals = append(m.Normals, vert.Normalized())
			m.UVs = append(m.UVs, geom.Vec2{U: u, V: v})
			m.Custom0 = append(m.Custom0, 1-math.Sin(ringRatio), math.Sin(ringRatio), 0, 1)
			point++

			if i > 0 && j > 0 {
				m.Indices = append(m.Indices,
					prevRow+j-1, prevRow+j, thisRow+j-1,
					prevRow+j, thisRow+j, thisRow+j-1,
				)
			}
		}

		if i > 0 {
			m.Indices = append(m.Indices,
				prevRow+segments-1, prevRow, thisRow+segments-1,
				prevRow, thisRow, thisRow+segments-1,
			)
		}

		prevRow = thisRow
		thisRow = point
	}
	return m
}
