// Package geom provides the geometric helpers shared by the simplifiers:
// face normals and the quadric error metric.
package geom

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/meshsimp/pkg/mesh"
)

// Up is the direction used when a normal cannot be determined.
var Up = r3.Vec{X: 0, Y: 1, Z: 0}

// FaceNormal returns the unit normal of triangle (v0, v1, v2) using the
// right-hand rule. A collinear triangle yields the zero vector.
func FaceNormal(v0, v1, v2 r3.Vec) r3.Vec {
	return Normalize(r3.Cross(r3.Sub(v1, v0), r3.Sub(v2, v0)))
}

// Normalize returns v scaled to unit length, or v unchanged if it is zero.
func Normalize(v r3.Vec) r3.Vec {
	if v == (r3.Vec{}) {
		return v
	}
	return r3.Unit(v)
}

// NormalizeOr is like Normalize but returns fallback for the zero vector.
func NormalizeOr(v, fallback r3.Vec) r3.Vec {
	if v == (r3.Vec{}) {
		return fallback
	}
	return r3.Unit(v)
}

// DeriveNormals computes flat shading normals: one normal per face, with all
// three corners of face i referencing normal i.
func DeriveNormals(vertices []r3.Vec, faces []mesh.Face) ([]r3.Vec, []mesh.Face) {
	normals := make([]r3.Vec, len(faces))
	faceNormals := make([]mesh.Face, len(faces))
	for i, f := range faces {
		normals[i] = FaceNormal(vertices[f[0]], vertices[f[1]], vertices[f[2]])
		faceNormals[i] = mesh.Face{i, i, i}
	}
	return normals, faceNormals
}
