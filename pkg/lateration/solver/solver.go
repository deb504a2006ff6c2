// Package solver estimates a single 2D position from distances to known
// anchor points.
//
// # Overview
//
// Given m > 2 anchors Xi and measured distances Di, the solver minimises
//
//	f(X) = Σ (||X − Xi||² − Di²)²
//
// by plain gradient descent. The search starts at the centroid of the
// anchors and always runs a fixed number of iterations; there is no
// convergence test and no divergence detection. Degenerate geometry
// (collinear or duplicate anchors, inconsistent distances) is not rejected:
// the solver returns whatever point it reached.
//
// # Step Rule
//
// Let g be the gradient at X and r the learning rate. Small gradients are
// followed directly (X ← X − r·g), large ones are normalised so each step
// moves exactly r (X ← X − r·g/|g|). The threshold is |g| = 1.
//
// # Usage
//
//	s, err := solver.New(anchors, distances, solver.Options{})
//	if err != nil {
//	    return err
//	}
//	p := s.Solve()
package solver

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/mlateration/pkg/errors"
)

const (
	// DefaultLearningRate is the step length r used when Options.LearningRate is zero.
	DefaultLearningRate = 0.01

	// DefaultIterations is the fixed number of descent steps per solve.
	DefaultIterations = 3333

	// MinAnchors is the smallest number of anchors a problem may have.
	MinAnchors = 3

	// ctxCheckInterval is how many steps SolveContext takes between
	// context checks.
	ctxCheckInterval = 256
)

// Point is a position in the plane.
type Point = r2.Vec

// Options configures a Solver. Zero values select the defaults, so
// Iterations: 0 means DefaultIterations rather than an empty budget. The
// zero-step result is the anchor centroid; use [Centroid] for it.
type Options struct {
	LearningRate float64 `json:"learning_rate,omitempty"`
	Iterations   int     `json:"iterations,omitempty"`
}

// WithDefaults returns a copy of o with zero fields replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.LearningRate == 0 {
		o.LearningRate = DefaultLearningRate
	}
	if o.Iterations == 0 {
		o.Iterations = DefaultIterations
	}
	return o
}

// Validate rejects negative or non-finite settings.
func (o Options) Validate() error {
	if o.LearningRate < 0 || math.IsNaN(o.LearningRate) || math.IsInf(o.LearningRate, 0) {
		return errors.New(errors.ErrCodeInvalidInput, "learning rate must be a non-negative finite number, got %v", o.LearningRate)
	}
	if o.Iterations < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "iterations must be non-negative, got %d", o.Iterations)
	}
	return nil
}

// Solver holds one multilateration problem.
// A Solver is immutable after construction and safe for concurrent use.
type Solver struct {
	anchors    []Point
	sqDist     []float64 // Di², precomputed
	rate       float64
	iterations int
}

// New creates a solver for the given anchors and distances.
//
// It fails with [errors.ErrCodeTooFewAnchors] when fewer than three
// distances are given and with [errors.ErrCodeLengthMismatch] when the two
// slices differ in length. The inputs are copied.
func New(anchors []Point, distances []float64, opts Options) (*Solver, error) {
	if len(distances) < MinAnchors {
		return nil, errors.New(errors.ErrCodeTooFewAnchors,
			"need at least %d distances, got %d", MinAnchors, len(distances))
	}
	if len(anchors) != len(distances) {
		return nil, errors.New(errors.ErrCodeLengthMismatch,
			"%d anchors but %d distances", len(anchors), len(distances))
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.WithDefaults()

	s := &Solver{
		anchors:    make([]Point, len(anchors)),
		sqDist:     make([]float64, len(distances)),
		rate:       opts.LearningRate,
		iterations: opts.Iterations,
	}
	copy(s.anchors, anchors)
	for i, d := range distances {
		s.sqDist[i] = d * d
	}
	return s, nil
}

// Len returns the number of anchors.
func (s *Solver) Len() int { return len(s.anchors) }

// Anchors returns a copy of the anchor points.
func (s *Solver) Anchors() []Point {
	out := make([]Point, len(s.anchors))
	copy(out, s.anchors)
	return out
}

// Residuals returns A_i(x) = ||x − Xi||² − Di² for every anchor.
// All residuals are zero exactly when x satisfies every constraint.
func (s *Solver) Residuals(x Point) []float64 {
	res := make([]float64, len(s.anchors))
	for i, a := range s.anchors {
		res[i] = r2.Norm2(r2.Sub(x, a)) - s.sqDist[i]
	}
	return res
}

// Cost returns (Σ A_i(x)²)^(1/4). It is only a diagnostic and is never
// differentiated.
func (s *Solver) Cost(x Point) float64 {
	var sum float64
	for _, a := range s.Residuals(x) {
		sum += a * a
	}
	return math.Sqrt(math.Sqrt(sum))
}

// Gradient returns Σ A_i(x)·(x − Xi), the gradient of f divided by four.
// It is computed as Dᵀ·A where D is the m×2 matrix of displacements.
func (s *Solver) Gradient(x Point) Point {
	m := len(s.anchors)
	disp := mat.NewDense(m, 2, nil)
	res := mat.NewVecDense(m, nil)
	for i, a := range s.anchors {
		d := r2.Sub(x, a)
		disp.Set(i, 0, d.X)
		disp.Set(i, 1, d.Y)
		res.SetVec(i, r2.Norm2(d)-s.sqDist[i])
	}

	var g mat.VecDense
	g.MulVec(disp.T(), res)
	return Point{X: g.AtVec(0), Y: g.AtVec(1)}
}

// Step performs one descent iteration from x and returns the new point
// together with the step that was applied.
func (s *Solver) Step(x Point) (next, step Point) {
	g := s.Gradient(x)
	norm := r2.Norm(g)
	if norm < 1 {
		step = r2.Scale(-s.rate, g)
	} else {
		step = r2.Scale(-s.rate/norm, g)
	}
	return r2.Add(x, step), step
}

// Solve runs the fixed iteration budget starting from the anchor centroid
// and returns the final point. It never fails.
func (s *Solver) Solve() Point {
	x := Centroid(s.anchors)
	for i := 0; i < s.iterations; i++ {
		x, _ = s.Step(x)
	}
	return x
}

// SolveContext is Solve with cancellation: ctx is checked every few
// hundred steps and its error returned once it is done. The iteration
// budget and the result are the same as Solve's.
func (s *Solver) SolveContext(ctx context.Context) (Point, error) {
	x := Centroid(s.anchors)
	for i := 0; i < s.iterations; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return x, err
			}
		}
		x, _ = s.Step(x)
	}
	return x, nil
}

// Centroid returns the arithmetic mean of points, or the origin for an
// empty slice.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var sum Point
	for _, p := range points {
		sum = r2.Add(sum, p)
	}
	return r2.Scale(1/float64(len(points)), sum)
}
