package geom

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Quadric accumulates plane constraints for a least-squares vertex position.
// A is the sum of n⊗n over the contributing planes and B the sum of
// (n⊗n)·p, where p is a point on the plane.
type Quadric struct {
	A [3][3]float64
	B r3.Vec
}

// Add accumulates the plane with normal n passing through p.
func (q *Quadric) Add(n, p r3.Vec) {
	nv := [3]float64{n.X, n.Y, n.Z}
	pv := [3]float64{p.X, p.Y, p.Z}
	var b [3]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			outer := nv[r] * nv[c]
			q.A[r][c] += outer
			b[r] += outer * pv[c]
		}
	}
	q.B = r3.Add(q.B, r3.Vec{X: b[0], Y: b[1], Z: b[2]})
}

// Merge adds the contributions of other into q.
func (q *Quadric) Merge(other *Quadric) {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			q.A[r][c] += other.A[r][c]
		}
	}
	q.B = r3.Add(q.B, other.B)
}

// Solve returns x minimizing the quadric regularized toward center, i.e. the
// solution of (A + w·I)x = B + w·center. For w > 0 the system is positive
// definite. If it still cannot be solved, center is returned.
func (q *Quadric) Solve(w float64, center r3.Vec) r3.Vec {
	a := mat.NewSymDense(3, []float64{
		q.A[0][0] + w, q.A[0][1], q.A[0][2],
		q.A[1][0], q.A[1][1] + w, q.A[1][2],
		q.A[2][0], q.A[2][1], q.A[2][2] + w,
	})
	rhs := mat.NewVecDense(3, []float64{
		q.B.X + w*center.X,
		q.B.Y + w*center.Y,
		q.B.Z + w*center.Z,
	})

	var x mat.VecDense
	var chol mat.Cholesky
	if chol.Factorize(a) {
		if err := chol.SolveVecTo(&x, rhs); err == nil {
			return vec(&x)
		}
	}

	// Not positive definite (w == 0 on a flat cluster); try a general solve.
	if err := x.SolveVec(a, rhs); err == nil {
		return vec(&x)
	}
	return center
}

func vec(x *mat.VecDense) r3.Vec {
	return r3.Vec{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)}
}
