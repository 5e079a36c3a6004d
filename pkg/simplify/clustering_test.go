package simplify

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/meshsimp/pkg/geom"
	"github.com/Faultbox/meshsimp/pkg/mesh"
)

func TestNewVertexClustering_RejectsCellLength(t *testing.T) {
	for _, bad := range []float64{0, -1, 1e-12, math.NaN(), math.Inf(1)} {
		_, err := NewVertexClustering(unitCube(), bad)
		assert.ErrorIs(t, err, ErrInvalidCellLength, "cell length %v", bad)
		assert.ErrorIs(t, err, ErrConfig, "cell length %v", bad)
	}

	// Valid on its own, but far too many cells for a unit cube.
	_, err := NewVertexClustering(unitCube(), 1e-7)
	assert.ErrorIs(t, err, ErrInvalidCellLength)
}

func TestNewVertexClustering_RejectsInvalidMesh(t *testing.T) {
	bad := unitCube()
	bad.Faces[0] = mesh.Face{0, 0, 1}
	_, err := NewVertexClustering(bad, 0.5)
	assert.ErrorIs(t, err, mesh.ErrDegenerateFace)
}

func TestVertexClustering_OneGiantCell(t *testing.T) {
	vc, err := NewVertexClustering(unitCube(), 2)
	require.NoError(t, err)

	out, stats := vc.Compute()
	assert.Empty(t, out.Faces)
	assert.Empty(t, out.Vertices)
	assert.Zero(t, stats.Cells)
	assert.Equal(t, 12, stats.DroppedFaces)
}

func TestVertexClustering_FineGridKeepsTopology(t *testing.T) {
	in := grid(4)
	vc, err := NewVertexClustering(in, 0.5)
	require.NoError(t, err)

	out, stats := vc.Compute()
	requireWellFormed(t, out)
	assert.Equal(t, len(in.Faces), len(out.Faces))
	assert.Equal(t, len(in.Vertices), len(out.Vertices))
	assert.Zero(t, stats.DroppedFaces)
	assert.Equal(t, out.Faces, out.FaceNormals)

	for i, n := range out.Normals {
		assert.InDelta(t, 1.0, n.Z, 1e-9, "normal %d", i)
	}
	for i, v := range out.Vertices {
		// x and y are unconstrained by the z = 0 plane, so they settle on the
		// cell center; z stays close to the plane.
		assert.InDelta(t, 0.25, v.X-math.Floor(v.X), 1e-9, "vertex %d", i)
		assert.InDelta(t, 0.25, v.Y-math.Floor(v.Y), 1e-9, "vertex %d", i)
		assert.Less(t, math.Abs(v.Z), 0.01, "vertex %d", i)
	}
}

func TestVertexClustering_CoarseGrid(t *testing.T) {
	in := grid(8)
	vc, err := NewVertexClustering(in, 2.5)
	require.NoError(t, err)

	out, stats := vc.Compute()
	requireWellFormed(t, out)
	assert.Less(t, len(out.Faces), len(in.Faces))
	assert.Less(t, len(out.Vertices), len(in.Vertices))
	assert.Equal(t, len(in.Faces)-len(out.Faces), stats.DroppedFaces)
	assert.Equal(t, stats.Cells, len(out.Vertices))

	lo, hi := in.Bounds()
	for _, v := range out.Vertices {
		assert.GreaterOrEqual(t, v.X, lo.X-1e-9)
		assert.LessOrEqual(t, v.X, hi.X+2.5)
		assert.GreaterOrEqual(t, v.Y, lo.Y-1e-9)
		assert.LessOrEqual(t, v.Y, hi.Y+2.5)
	}
}

func TestVertexClustering_Deterministic(t *testing.T) {
	in := grid(10)
	vc, err := NewVertexClustering(in, 1.7)
	require.NoError(t, err)

	a, sa := vc.Compute()
	b, sb := vc.Compute()
	assert.Equal(t, a, b)
	assert.Equal(t, sa, sb)

	other, err := NewVertexClustering(in, 1.7)
	require.NoError(t, err)
	c, _ := other.Compute()
	assert.Equal(t, a, c)
}

func TestVertexClustering_WorkersMatchSequential(t *testing.T) {
	in := unitCube()
	for i := range in.Vertices {
		// Tilt the cube so faces are not axis aligned.
		v := in.Vertices[i]
		in.Vertices[i] = r3.Vec{X: v.X + 0.3*v.Z, Y: v.Y - 0.2*v.X, Z: v.Z + 0.1*v.Y}
	}

	seq, err := NewVertexClustering(in, 0.6)
	require.NoError(t, err)
	par, err := NewVertexClustering(in, 0.6, WithWorkers(4))
	require.NoError(t, err)

	a, _ := seq.Compute()
	b, _ := par.Compute()
	require.Equal(t, a.Faces, b.Faces)
	require.Equal(t, a.Normals, b.Normals)
	require.Len(t, b.Vertices, len(a.Vertices))
	for i := range a.Vertices {
		assert.InDelta(t, a.Vertices[i].X, b.Vertices[i].X, 1e-9)
		assert.InDelta(t, a.Vertices[i].Y, b.Vertices[i].Y, 1e-9)
		assert.InDelta(t, a.Vertices[i].Z, b.Vertices[i].Z, 1e-9)
	}

	again, _ := par.Compute()
	assert.Equal(t, b, again)
}

func TestVertexClustering_IsolatedVertexExcluded(t *testing.T) {
	in := grid(2)
	in.Vertices = append(in.Vertices, r3.Vec{X: 1.9, Y: 1.9, Z: 1.9})

	vc, err := NewVertexClustering(in, 0.5)
	require.NoError(t, err)
	out, _ := vc.Compute()
	requireWellFormed(t, out)
	assert.Len(t, out.Vertices, len(in.Vertices)-1)
}

func TestVertexClustering_UsesAuthoredNormals(t *testing.T) {
	in := &mesh.Mesh{
		Vertices:    []r3.Vec{{}, {X: 1}, {Y: 1}},
		Normals:     []r3.Vec{{X: 2}},
		Faces:       []mesh.Face{{0, 1, 2}},
		FaceNormals: []mesh.Face{{0, 0, 0}},
	}
	vc, err := NewVertexClustering(in, 0.5)
	require.NoError(t, err)
	out, _ := vc.Compute()

	require.Len(t, out.Normals, 3)
	for _, n := range out.Normals {
		assert.Equal(t, r3.Vec{X: 1}, n)
	}
}

func TestVertexClustering_ZeroNormalSumFallsBackToUp(t *testing.T) {
	// Two coincident triangles with opposite authored normals cancel out.
	in := &mesh.Mesh{
		Vertices:    []r3.Vec{{}, {X: 1}, {Y: 1}},
		Normals:     []r3.Vec{{Z: 1}, {Z: -1}},
		Faces:       []mesh.Face{{0, 1, 2}, {0, 2, 1}},
		FaceNormals: []mesh.Face{{0, 0, 0}, {1, 1, 1}},
	}
	vc, err := NewVertexClustering(in, 0.5)
	require.NoError(t, err)
	out, _ := vc.Compute()

	require.Len(t, out.Normals, 3)
	for _, n := range out.Normals {
		assert.Equal(t, geom.Up, n)
	}
}

func TestVertexClustering_DoesNotMutateInput(t *testing.T) {
	in := grid(3)
	snapshot := in.Clone()
	vc, err := NewVertexClustering(in, 0.8)
	require.NoError(t, err)
	vc.Compute()
	assert.Equal(t, snapshot, in)
}

func TestCellLengthFromExtent(t *testing.T) {
	in := grid(4)
	assert.InDelta(t, 0.4, CellLengthFromExtent(in, 0.1), 1e-12)
}

func TestVertexClustering_KeyOfBoundaryVertex(t *testing.T) {
	in := &mesh.Mesh{
		Vertices: []r3.Vec{{}, {X: 0.3}, {Y: 0.3}, {X: 0.7, Y: 0.7}},
		Faces:    []mesh.Face{{0, 1, 2}, {1, 3, 2}},
	}
	vc, err := NewVertexClustering(in, 0.1)
	require.NoError(t, err)

	// 0.3 / 0.1 and 0.7 / 0.1 fall just below 3 and 7.
	assert.Equal(t, cellKey{2, 0, 0}, vc.keyOf(in.Vertices[1]))
	assert.Equal(t, cellKey{0, 2, 0}, vc.keyOf(in.Vertices[2]))
	assert.Equal(t, cellKey{6, 6, 0}, vc.keyOf(in.Vertices[3]))
}

func TestVertexClustering_DroppedFacesFeedQuadrics(t *testing.T) {
	// Face 0 spans three cells in the plane z = 0.2. Face 1 shares vertex 0
	// but has two corners in one cell, so it is dropped; its plane x = 0.2
	// must still pull cell (0,0,0) off the cell center along x.
	in := &mesh.Mesh{
		Vertices: []r3.Vec{
			{X: 0.2, Y: 0.2, Z: 0.2},
			{X: 1.5, Y: 0.2, Z: 0.2},
			{X: 0.2, Y: 1.5, Z: 0.2},
			{X: 0.2, Y: 0.2, Z: 2.5},
			{X: 0.2, Y: 0.8, Z: 2.5},
		},
		Faces: []mesh.Face{{0, 1, 2}, {0, 3, 4}},
	}
	vc, err := NewVertexClustering(in, 1)
	require.NoError(t, err)

	out, stats := vc.Compute()
	requireWellFormed(t, out)
	assert.Equal(t, 1, stats.DroppedFaces)
	require.Len(t, out.Faces, 1)
	require.Len(t, out.Vertices, 3)

	// Cell center is (0.7, 0.7, 0.7).
	v := out.Vertices[out.Faces[0][0]]
	assert.InDelta(t, 0.2, v.X, 1e-3)
	assert.InDelta(t, 0.7, v.Y, 1e-9)
	assert.InDelta(t, 0.2, v.Z, 1e-3)
}
