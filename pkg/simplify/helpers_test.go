package simplify

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/meshsimp/pkg/mesh"
)

// unitCube returns an axis-aligned unit cube with outward-facing triangles
// and no authored normals.
func unitCube() *mesh.Mesh {
	return &mesh.Mesh{
		Vertices: []r3.Vec{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
			{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 1},
		},
		Faces: []mesh.Face{
			{0, 2, 1}, {0, 3, 2}, // bottom
			{4, 5, 6}, {4, 6, 7}, // top
			{0, 1, 5}, {0, 5, 4}, // front
			{3, 7, 6}, {3, 6, 2}, // back
			{0, 4, 7}, {0, 7, 3}, // left
			{1, 2, 6}, {1, 6, 5}, // right
		},
	}
}

// grid returns an n×n quad grid of unit squares in the z = 0 plane, split
// into 2·n² triangles.
func grid(n int) *mesh.Mesh {
	m := &mesh.Mesh{}
	for y := 0; y <= n; y++ {
		for x := 0; x <= n; x++ {
			m.Vertices = append(m.Vertices, r3.Vec{X: float64(x), Y: float64(y)})
		}
	}
	at := func(x, y int) int { return y*(n+1) + x }
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			m.Faces = append(m.Faces,
				mesh.Face{at(x, y), at(x+1, y), at(x+1, y+1)},
				mesh.Face{at(x, y), at(x+1, y+1), at(x, y+1)},
			)
		}
	}
	return m
}

// requireWellFormed checks the index validity and degeneracy invariants and
// that normals are unit length.
func requireWellFormed(t *testing.T, m *mesh.Mesh) {
	t.Helper()
	require.NoError(t, m.Validate())
	require.Len(t, m.FaceNormals, len(m.Faces))
	for i, f := range m.Faces {
		require.True(t, f.Distinct(), "face %d %v is degenerate", i, f)
	}
	for i, n := range m.Normals {
		if n == (r3.Vec{}) {
			continue
		}
		require.InDelta(t, 1.0, r3.Norm(n), 1e-6, "normal %d", i)
	}
}
