// Package mesh provides the indexed triangle mesh shared by the simplifiers.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Structural validity errors.
var (
	ErrInvalidMesh     = errors.New("invalid mesh")
	ErrIndexOutOfRange = fmt.Errorf("%w: index out of range", ErrInvalidMesh)
	ErrDegenerateFace  = fmt.Errorf("%w: degenerate face", ErrInvalidMesh)
	ErrFaceNormalCount = fmt.Errorf("%w: face normal count does not match face count", ErrInvalidMesh)
	ErrNonFiniteVertex = fmt.Errorf("%w: non-finite vertex coordinate", ErrInvalidMesh)
)

// Face is a triangle of three 0-based indices.
type Face [3]int

// Distinct reports whether the three indices are pairwise distinct.
func (f Face) Distinct() bool {
	return f[0] != f[1] && f[1] != f[2] && f[2] != f[0]
}

// Contains reports whether idx is one of the corners.
func (f Face) Contains(idx int) bool {
	return f[0] == idx || f[1] == idx || f[2] == idx
}

// Mesh is an indexed triangle mesh.
//
// FaceNormals runs parallel to Faces and indexes into Normals. A mesh with no
// authored normals has empty Normals and nil FaceNormals.
type Mesh struct {
	Vertices    []r3.Vec
	Normals     []r3.Vec
	Faces       []Face
	FaceNormals []Face
}

// HasNormals returns true if the mesh carries normals.
func (m *Mesh) HasNormals() bool {
	return len(m.Normals) > 0
}

// Validate checks that every index references an existing entry and that no
// face is degenerate.
func (m *Mesh) Validate() error {
	for i, v := range m.Vertices {
		if !finite(v) {
			return fmt.Errorf("%w: vertex %d", ErrNonFiniteVertex, i)
		}
	}

	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(m.Vertices) {
				return fmt.Errorf("%w: face %d references vertex %d (have %d)",
					ErrIndexOutOfRange, i, idx, len(m.Vertices))
			}
		}
		if !f.Distinct() {
			return fmt.Errorf("%w: face %d %v", ErrDegenerateFace, i, f)
		}
	}

	if !m.HasNormals() {
		return nil
	}
	if len(m.FaceNormals) != len(m.Faces) {
		return fmt.Errorf("%w: %d face normals for %d faces",
			ErrFaceNormalCount, len(m.FaceNormals), len(m.Faces))
	}
	for i, fn := range m.FaceNormals {
		for _, idx := range fn {
			if idx < 0 || idx >= len(m.Normals) {
				return fmt.Errorf("%w: face %d references normal %d (have %d)",
					ErrIndexOutOfRange, i, idx, len(m.Normals))
			}
		}
	}
	return nil
}

// Bounds returns the component-wise minimum and maximum over all vertices.
// An empty mesh returns two zero vectors.
func (m *Mesh) Bounds() (lo, hi r3.Vec) {
	if len(m.Vertices) == 0 {
		return r3.Vec{}, r3.Vec{}
	}
	lo, hi = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		lo = r3.Vec{X: math.Min(lo.X, v.X), Y: math.Min(lo.Y, v.Y), Z: math.Min(lo.Z, v.Z)}
		hi = r3.Vec{X: math.Max(hi.X, v.X), Y: math.Max(hi.Y, v.Y), Z: math.Max(hi.Z, v.Z)}
	}
	return lo, hi
}

// Extent returns the largest side of the bounding box.
func (m *Mesh) Extent() float64 {
	lo, hi := m.Bounds()
	d := r3.Sub(hi, lo)
	return math.Max(d.X, math.Max(d.Y, d.Z))
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Vertices: append([]r3.Vec(nil), m.Vertices...),
		Normals:  append([]r3.Vec(nil), m.Normals...),
		Faces:    append([]Face(nil), m.Faces...),
	}
	if m.FaceNormals != nil {
		c.FaceNormals = append([]Face(nil), m.FaceNormals...)
	}
	return c
}

func finite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}
