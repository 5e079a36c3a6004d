package simplify

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/meshsimp/pkg/geom"
	"github.com/Faultbox/meshsimp/pkg/mesh"
)

const (
	// MinCellLength is the smallest accepted grid cell length.
	MinCellLength = 1e-9

	// MaxCellsPerAxis bounds the grid resolution along any axis.
	MaxCellsPerAxis = 1 << 21

	// regularization weight contributed by each vertex of a cell
	cellVertexWeight = 0.001
)

// cellKey identifies a grid cell by its integer coordinates.
type cellKey [3]int

// cell is the per-cell accumulator. id is the output vertex index.
type cell struct {
	key     cellKey
	id      int
	normal  r3.Vec
	quadric geom.Quadric
	count   int
}

// ClusterStats describes a finished vertex clustering run.
type ClusterStats struct {
	InputVertices  int
	InputFaces     int
	CellLength     float64
	Cells          int
	DroppedFaces   int // faces with two or more corners in one cell
	OutputVertices int
	OutputFaces    int
}

// ClusterOption configures a VertexClustering.
type ClusterOption func(*VertexClustering)

// WithWorkers sets the number of goroutines used for quadric accumulation.
// Values below 1 are treated as 1.
func WithWorkers(n int) ClusterOption {
	return func(vc *VertexClustering) {
		if n < 1 {
			n = 1
		}
		vc.workers = n
	}
}

// VertexClustering decimates a mesh by snapping vertices onto a uniform grid
// and merging every vertex of a cell into one representative, placed by
// minimizing the cell's accumulated quadric.
type VertexClustering struct {
	src        *mesh.Mesh
	cellLength float64
	min        r3.Vec
	workers    int
}

// NewVertexClustering validates m and cellLength and returns a simplifier
// using cubic cells of side cellLength, anchored at the mesh's minimum
// corner. The input mesh is copied.
func NewVertexClustering(m *mesh.Mesh, cellLength float64, opts ...ClusterOption) (*VertexClustering, error) {
	if math.IsNaN(cellLength) || math.IsInf(cellLength, 0) || cellLength < MinCellLength {
		return nil, fmt.Errorf("%w: got %v, minimum %v", ErrInvalidCellLength, cellLength, MinCellLength)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("vertex clustering: %w", err)
	}
	if cells := m.Extent() / cellLength; cells > MaxCellsPerAxis {
		return nil, fmt.Errorf("%w: %v yields %.0f cells per axis, maximum %d",
			ErrInvalidCellLength, cellLength, cells, MaxCellsPerAxis)
	}

	lo, _ := m.Bounds()
	vc := &VertexClustering{
		src:        m.Clone(),
		cellLength: cellLength,
		min:        lo,
		workers:    1,
	}
	for _, opt := range opts {
		opt(vc)
	}
	return vc, nil
}

// CellLengthFromExtent converts a fraction of the largest bounding box side
// into an absolute cell length.
func CellLengthFromExtent(m *mesh.Mesh, fraction float64) float64 {
	return m.Extent() * fraction
}

// keyOf returns floor((v - min) / L) per axis. Multiplying by 1/L instead
// would move x = 0.3, L = 0.1 from cell 2 to cell 3.
func (vc *VertexClustering) keyOf(v r3.Vec) cellKey {
	l := vc.cellLength
	return cellKey{
		int(math.Floor((v.X - vc.min.X) / l)),
		int(math.Floor((v.Y - vc.min.Y) / l)),
		int(math.Floor((v.Z - vc.min.Z) / l)),
	}
}

// center returns the geometric center of cell k.
func (vc *VertexClustering) center(k cellKey) r3.Vec {
	l := vc.cellLength
	return r3.Vec{
		X: float64(k[0])*l + vc.min.X + 0.5*l,
		Y: float64(k[1])*l + vc.min.Y + 0.5*l,
		Z: float64(k[2])*l + vc.min.Z + 0.5*l,
	}
}

// Compute runs the clustering and returns the simplified mesh. Output
// normals are per vertex, so FaceNormals equals Faces.
func (vc *VertexClustering) Compute() (*mesh.Mesh, ClusterStats) {
	src := vc.src
	normals, faceNormals := src.Normals, src.FaceNormals
	if !src.HasNormals() {
		normals, faceNormals = geom.DeriveNormals(src.Vertices, src.Faces)
	}

	keys := make([]cellKey, len(src.Vertices))
	for i, v := range src.Vertices {
		keys[i] = vc.keyOf(v)
	}

	stats := ClusterStats{
		InputVertices: len(src.Vertices),
		InputFaces:    len(src.Faces),
		CellLength:    vc.cellLength,
	}

	// Topology: only faces spanning three distinct cells survive, and only
	// their cells are registered.
	index := make(map[cellKey]int)
	var cells []*cell
	out := &mesh.Mesh{}
	for fi, f := range src.Faces {
		k := [3]cellKey{keys[f[0]], keys[f[1]], keys[f[2]]}
		if k[0] == k[1] || k[1] == k[2] || k[2] == k[0] {
			stats.DroppedFaces++
			continue
		}
		var nf mesh.Face
		for i := 0; i < 3; i++ {
			id, ok := index[k[i]]
			if !ok {
				id = len(cells)
				index[k[i]] = id
				cells = append(cells, &cell{key: k[i], id: id})
			}
			c := cells[id]
			c.normal = r3.Add(c.normal, normals[faceNormals[fi][i]])
			nf[i] = id
		}
		out.Faces = append(out.Faces, nf)
	}

	out.Normals = make([]r3.Vec, len(cells))
	for _, c := range cells {
		out.Normals[c.id] = geom.NormalizeOr(c.normal, geom.Up)
	}
	out.FaceNormals = append([]mesh.Face(nil), out.Faces...)

	// Map each input vertex to its registered cell, or -1.
	cellOf := make([]int, len(src.Vertices))
	for i, k := range keys {
		cellOf[i] = -1
		if id, ok := index[k]; ok {
			cellOf[i] = id
			cells[id].count++
		}
	}

	quadrics := vc.accumulate(cellOf, len(cells))

	out.Vertices = make([]r3.Vec, len(cells))
	for _, c := range cells {
		w := float64(c.count) * cellVertexWeight
		out.Vertices[c.id] = quadrics[c.id].Solve(w, vc.center(c.key))
	}

	stats.Cells = len(cells)
	stats.OutputVertices = len(out.Vertices)
	stats.OutputFaces = len(out.Faces)
	return out, stats
}

// accumulate builds one quadric per registered cell from every input face,
// whether or not the face survived the topology pass. Work is split into
// contiguous face ranges merged in range order, so the result depends only on
// the input and the worker count.
func (vc *VertexClustering) accumulate(cellOf []int, n int) []geom.Quadric {
	faces := vc.src.Faces
	workers := vc.workers
	if workers > len(faces) {
		workers = len(faces)
	}
	if workers <= 1 {
		q := make([]geom.Quadric, n)
		vc.accumulateRange(q, cellOf, faces)
		return q
	}

	parts := make([][]geom.Quadric, workers)
	chunk := (len(faces) + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, len(faces))
		parts[w] = make([]geom.Quadric, n)
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(dst []geom.Quadric, faces []mesh.Face) {
			defer wg.Done()
			vc.accumulateRange(dst, cellOf, faces)
		}(parts[w], faces[lo:hi])
	}
	wg.Wait()

	q := parts[0]
	for _, p := range parts[1:] {
		for i := range q {
			q[i].Merge(&p[i])
		}
	}
	return q
}

func (vc *VertexClustering) accumulateRange(dst []geom.Quadric, cellOf []int, faces []mesh.Face) {
	v := vc.src.Vertices
	for _, f := range faces {
		n := geom.FaceNormal(v[f[0]], v[f[1]], v[f[2]])
		for _, idx := range f {
			if id := cellOf[idx]; id >= 0 {
				dst[id].Add(n, v[idx])
			}
		}
	}
}
