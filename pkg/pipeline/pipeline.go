// Package pipeline runs the decode → solve → cache flow shared by the CLI
// and the HTTP server.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	doc, _ := graph.ReadGraphFile("site.toml")
//	result, err := runner.Execute(ctx, doc, pipeline.Options{Workers: 4})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Stats.Solved, "vertices positioned")
//
// Results are cached under the content hash of the canonical graph
// document together with every option that influences the solution, so
// reordering a document or switching its format still hits the cache.
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mlateration/pkg/cache"
	"github.com/matzehuels/mlateration/pkg/errors"
	"github.com/matzehuels/mlateration/pkg/graph"
	"github.com/matzehuels/mlateration/pkg/lateration"
	"github.com/matzehuels/mlateration/pkg/lateration/solver"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	DefaultLearningRate = solver.DefaultLearningRate
	DefaultIterations   = solver.DefaultIterations
	DefaultMaxRounds    = lateration.DefaultMaxRounds
	DefaultWorkers      = 1

	// Upper bounds for values coming from the network or a config file.
	MaxWorkers    = 64
	MaxIterations = 1_000_000
	MaxRoundsCap  = 100_000
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures one pipeline run. It doubles as the JSON body of API
// requests.
type Options struct {
	LearningRate float64 `json:"learning_rate,omitempty"`
	Iterations   int     `json:"iterations,omitempty"`
	MaxRounds    int     `json:"max_rounds,omitempty"`
	Workers      int     `json:"workers,omitempty"`
	Refresh      bool    `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateAndSetDefaults rejects out-of-range values and fills zero values
// with defaults. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.SolverOptions().Validate(); err != nil {
		return err
	}
	if o.Iterations > MaxIterations {
		return errors.New(errors.ErrCodeInvalidInput, "iterations must be at most %d, got %d", MaxIterations, o.Iterations)
	}
	if o.MaxRounds < 0 || o.MaxRounds > MaxRoundsCap {
		return errors.New(errors.ErrCodeInvalidInput, "max_rounds must be between 0 and %d, got %d", MaxRoundsCap, o.MaxRounds)
	}
	if o.Workers < 0 || o.Workers > MaxWorkers {
		return errors.New(errors.ErrCodeInvalidInput, "workers must be between 0 and %d, got %d", MaxWorkers, o.Workers)
	}

	if o.LearningRate == 0 {
		o.LearningRate = DefaultLearningRate
	}
	if o.Iterations == 0 {
		o.Iterations = DefaultIterations
	}
	if o.MaxRounds == 0 {
		o.MaxRounds = DefaultMaxRounds
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// SolverOptions returns the point-solver settings.
func (o *Options) SolverOptions() solver.Options {
	return solver.Options{LearningRate: o.LearningRate, Iterations: o.Iterations}
}

// LaterationOptions returns the graph options for this run.
func (o *Options) LaterationOptions() []lateration.Option {
	return []lateration.Option{
		lateration.WithSolverOptions(o.SolverOptions()),
		lateration.WithMaxRounds(o.MaxRounds),
		lateration.WithWorkers(o.Workers),
		lateration.WithLogger(o.Logger),
	}
}

// KeyOpts returns the cache key options for this run.
func (o *Options) KeyOpts() cache.SolutionKeyOpts {
	return cache.SolutionKeyOpts{
		LearningRate: o.LearningRate,
		Iterations:   o.Iterations,
		MaxRounds:    o.MaxRounds,
	}
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID uniquely identifies this run (also on cache hits).
	RunID string

	// GraphHash is the content hash of the canonical input document.
	GraphHash string

	Solution *graph.Solution

	// Report holds round statistics. It is nil when the solution came
	// from the cache.
	Report *lateration.Report

	Stats Stats

	CacheHit bool
}

// Stats summarises a run.
type Stats struct {
	Vertices  int
	Edges     int
	Anchors   int
	Solved    int
	Unsolved  int
	Rounds    int
	SolveTime time.Duration
}

func statsFromSolution(s *graph.Solution) Stats {
	st := Stats{
		Vertices: len(s.Positions) + len(s.Unsolved),
		Edges:    len(s.Edges),
		Unsolved: len(s.Unsolved),
		Rounds:   s.Rounds,
	}
	for _, p := range s.Positions {
		if p.Anchor {
			st.Anchors++
		} else {
			st.Solved++
		}
	}
	return st
}
