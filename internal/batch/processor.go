package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshsimp/internal/config"
	"github.com/Faultbox/meshsimp/internal/logger"
)

// ErrDuplicateOutput is returned for an input whose output path was already
// claimed by an earlier input in the same run.
var ErrDuplicateOutput = errors.New("output path already used by another input")

// progressInterval is how often Run logs throughput.
var progressInterval = 2 * time.Second

// Run processes all inputs on cfg.Batch.Workers goroutines. Results are in
// input order. Inputs not started before ctx is done get ctx.Err(), and an
// input whose output path repeats an earlier one gets ErrDuplicateOutput.
func Run(ctx context.Context, cfg *config.Config, inputs []string) []Result {
	total := len(inputs)
	results := make([]Result, total)
	var processed atomic.Int64

	if cfg.Output.Dir != "" {
		if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
			for i, in := range inputs {
				results[i] = Result{Input: in, Err: err}
			}
			return results
		}
	}

	// Later inputs mapping onto an earlier input's output are failed up front.
	var queued []int
	owner := make(map[string]string, total)
	for i, in := range inputs {
		out := OutputPath(cfg, in)
		if first, ok := owner[out]; ok {
			results[i] = Result{
				Input:  in,
				Output: out,
				Err:    fmt.Errorf("%w: %s (from %s)", ErrDuplicateOutput, out, first),
			}
			logResult(results[i])
			continue
		}
		owner[out] = in
		queued = append(queued, i)
	}

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					logger.Info("batch progress",
						zap.Int64("done", p),
						zap.Int("total", total),
						zap.Float64("files_per_sec", float64(p)/elapsed),
					)
				}
			}
		}
	}()

	workers := cfg.Batch.Workers
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results[idx] = Result{Input: inputs[idx], Err: err}
				} else {
					results[idx] = ProcessFile(cfg, inputs[idx])
					logResult(results[idx])
				}
				processed.Add(1)
			}
		}()
	}

	for _, i := range queued {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(done)

	return results
}

func logResult(r Result) {
	log := logger.With(zap.String("file", r.Input))
	if r.Err != nil {
		log.Error("simplification failed", zap.Error(r.Err))
		return
	}
	log.Debug("simplified",
		zap.String("output", r.Output),
		zap.String("method", r.Summary.Method),
		zap.Int("faces_in", r.Summary.InputFaces),
		zap.Int("faces_out", r.Summary.OutputFaces),
		zap.Duration("took", r.Duration),
	)
	if r.Summary.Exhausted {
		log.Warn("edge queue exhausted before target face count",
			zap.Int("faces_out", r.Summary.OutputFaces))
	}
}
