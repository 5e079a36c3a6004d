// Package batch runs the configured simplifier over mesh files, one at a time
// or on a worker pool.
package batch

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Faultbox/meshsimp/internal/config"
	"github.com/Faultbox/meshsimp/pkg/formats"
	"github.com/Faultbox/meshsimp/pkg/mesh"
	"github.com/Faultbox/meshsimp/pkg/simplify"
)

// Summary describes one simplification independent of the method used.
type Summary struct {
	Method         string
	InputVertices  int
	InputFaces     int
	OutputVertices int
	OutputFaces    int
	CellLength     float64 // absolute, clustering only
	Exhausted      bool    // edge collapse stopped above its target
}

// Simplify runs the method selected in cfg on m.
func Simplify(cfg *config.Config, m *mesh.Mesh) (*mesh.Mesh, Summary, error) {
	sc := cfg.Simplify
	switch sc.Method {
	case config.MethodCollapse:
		ec, err := simplify.NewEdgeCollapse(m, sc.ReductionRatio)
		if err != nil {
			return nil, Summary{}, err
		}
		out, st := ec.Process()
		return out, Summary{
			Method:         sc.Method,
			InputVertices:  st.InputVertices,
			InputFaces:     st.InputFaces,
			OutputVertices: st.OutputVertices,
			OutputFaces:    st.OutputFaces,
			Exhausted:      st.Exhausted,
		}, nil

	case config.MethodCluster:
		cell := sc.CellLength
		if sc.RelativeCellLength {
			cell = simplify.CellLengthFromExtent(m, cell)
		}
		vc, err := simplify.NewVertexClustering(m, cell, simplify.WithWorkers(sc.Workers))
		if err != nil {
			return nil, Summary{}, err
		}
		out, st := vc.Compute()
		return out, Summary{
			Method:         sc.Method,
			InputVertices:  st.InputVertices,
			InputFaces:     st.InputFaces,
			OutputVertices: st.OutputVertices,
			OutputFaces:    st.OutputFaces,
			CellLength:     st.CellLength,
		}, nil

	default:
		return nil, Summary{}, fmt.Errorf("%w: unknown method %q", simplify.ErrConfig, sc.Method)
	}
}

// OutputPath returns where the simplified version of input is written:
// <dir>/<name><suffix>.obj, with dir defaulting to the input's directory.
func OutputPath(cfg *config.Config, input string) string {
	dir := cfg.Output.Dir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+cfg.Suffix()+".obj")
}

// Result holds the outcome of processing one file.
type Result struct {
	Input    string
	Output   string
	Summary  Summary
	Duration time.Duration
	Err      error
}

// ProcessFile parses input, simplifies it and writes the result.
func ProcessFile(cfg *config.Config, input string) Result {
	start := time.Now()
	res := Result{Input: input, Output: OutputPath(cfg, input)}

	m, err := formats.ParseOBJFile(input)
	if err != nil {
		res.Err = err
		return res
	}

	out, summary, err := Simplify(cfg, m)
	if err != nil {
		res.Err = fmt.Errorf("simplifying %s: %w", input, err)
		return res
	}
	res.Summary = summary

	if err := formats.WriteOBJFile(res.Output, out); err != nil {
		res.Err = err
		return res
	}
	res.Duration = time.Since(start)
	return res
}
