package simplify

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/meshsimp/pkg/geom"
	"github.com/Faultbox/meshsimp/pkg/mesh"
)

// Stats describes a finished edge collapse run.
type Stats struct {
	InputVertices  int
	InputFaces     int
	TargetFaces    int
	EdgesPriced    int
	Collapses      int
	StaleEntries   int // queue entries discarded because an endpoint was already removed
	OutputVertices int
	OutputFaces    int

	// Exhausted is set when the queue ran dry before the target was reached.
	Exhausted bool
}

// EdgeCollapse decimates a mesh by repeatedly merging the endpoints of the
// shortest remaining edge until the face count reaches the target.
//
// Edge costs are computed once from the input positions and never updated.
// Entries whose endpoints were collapsed away are skipped when popped.
type EdgeCollapse struct {
	src   *mesh.Mesh
	ratio float64

	// OnCollapse, if set, is called after every collapse with the number of
	// faces still alive.
	OnCollapse func(faces int)
}

// NewEdgeCollapse validates m and ratio and returns a simplifier that targets
// floor(len(m.Faces) * ratio) faces. The input mesh is copied.
func NewEdgeCollapse(m *mesh.Mesh, ratio float64) (*EdgeCollapse, error) {
	if err := ValidateRatio(ratio); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("edge collapse: %w", err)
	}
	return &EdgeCollapse{src: m.Clone(), ratio: ratio}, nil
}

// collapseState is the working copy for one run.
type collapseState struct {
	vertices []r3.Vec
	removed  []bool
	faces    []mesh.Face
	alive    []bool
	live     int
	incident [][]int // vertex -> indices of faces that referenced it
}

// Process runs the decimation and returns the simplified mesh.
func (ec *EdgeCollapse) Process() (*mesh.Mesh, Stats) {
	st := &collapseState{
		vertices: append([]r3.Vec(nil), ec.src.Vertices...),
		removed:  make([]bool, len(ec.src.Vertices)),
		faces:    append([]mesh.Face(nil), ec.src.Faces...),
		alive:    make([]bool, len(ec.src.Faces)),
		live:     len(ec.src.Faces),
		incident: make([][]int, len(ec.src.Vertices)),
	}
	for fi, f := range st.faces {
		st.alive[fi] = true
		for _, v := range f {
			st.incident[v] = append(st.incident[v], fi)
		}
	}

	stats := Stats{
		InputVertices: len(ec.src.Vertices),
		InputFaces:    len(ec.src.Faces),
		TargetFaces:   int(float64(len(ec.src.Faces)) * ec.ratio),
	}

	queue := st.buildQueue(&stats)

	for st.live > stats.TargetFaces && queue.Len() > 0 {
		entry := queue.pop()
		if st.removed[entry.edge.a] || st.removed[entry.edge.b] {
			stats.StaleEntries++
			continue
		}
		st.collapse(entry.edge)
		stats.Collapses++
		if ec.OnCollapse != nil {
			ec.OnCollapse(st.live)
		}
	}

	stats.Exhausted = st.live > stats.TargetFaces

	out := st.compact(ec.src)
	stats.OutputVertices = len(out.Vertices)
	stats.OutputFaces = len(out.Faces)
	return out, stats
}

// buildQueue prices every unique edge once.
func (st *collapseState) buildQueue(stats *Stats) *edgeQueue {
	priced := make(map[edge]float64, len(st.faces)*3/2)
	queue := make(edgeQueue, 0, len(st.faces)*3/2)
	for _, f := range st.faces {
		for _, e := range [3]edge{newEdge(f[0], f[1]), newEdge(f[1], f[2]), newEdge(f[2], f[0])} {
			if _, ok := priced[e]; ok {
				continue
			}
			cost := edgeCost(st.vertices, e)
			priced[e] = cost
			queue.push(cost, e)
		}
	}
	stats.EdgesPriced = len(priced)
	return &queue
}

// collapse merges e.b into e.a. e.a moves to the midpoint and e.b is
// tombstoned. Faces left with a repeated corner are dropped.
func (st *collapseState) collapse(e edge) {
	keep, gone := e.a, e.b
	st.vertices[keep] = r3.Scale(0.5, r3.Add(st.vertices[keep], st.vertices[gone]))
	st.removed[gone] = true

	for _, fi := range st.incident[gone] {
		if !st.alive[fi] {
			continue
		}
		f := st.faces[fi]
		for i := range f {
			if f[i] == gone {
				f[i] = keep
			}
		}
		if !f.Distinct() {
			st.alive[fi] = false
			st.live--
			continue
		}
		st.faces[fi] = f
		st.incident[keep] = append(st.incident[keep], fi)
	}
	st.incident[gone] = nil
}

// compact drops tombstoned vertices and re-indexes the surviving faces,
// preserving the original relative order of both.
func (st *collapseState) compact(src *mesh.Mesh) *mesh.Mesh {
	remap := make([]int, len(st.vertices))
	out := &mesh.Mesh{}
	for i, v := range st.vertices {
		if st.removed[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(out.Vertices)
		out.Vertices = append(out.Vertices, v)
	}

	authored := src.HasNormals()
	for fi, f := range st.faces {
		if !st.alive[fi] {
			continue
		}
		nf := mesh.Face{remap[f[0]], remap[f[1]], remap[f[2]]}
		if nf[0] < 0 || nf[1] < 0 || nf[2] < 0 || !nf.Distinct() {
			continue
		}
		out.Faces = append(out.Faces, nf)
		if authored {
			out.FaceNormals = append(out.FaceNormals, src.FaceNormals[fi])
		}
	}

	if authored {
		out.Normals = append([]r3.Vec(nil), src.Normals...)
	} else {
		out.Normals, out.FaceNormals = geom.DeriveNormals(out.Vertices, out.Faces)
	}
	return out
}
