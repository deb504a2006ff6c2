package lateration

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/mlateration/pkg/lateration/solver"
	"github.com/matzehuels/mlateration/pkg/observability"
)

// RoundStats summarises one round of [Graph.Solve].
type RoundStats struct {
	Round    int           `json:"round"`
	Solved   []string      `json:"solved"`
	Unsolved int           `json:"unsolved"`
	Duration time.Duration `json:"duration"`
}

// Report is the outcome of [Graph.Solve].
type Report struct {
	// Rounds holds one entry per round that ran, including the final
	// empty round when a fixed point was reached.
	Rounds []RoundStats `json:"rounds"`

	// Solved lists the vertices positioned by this call in commit order.
	Solved []string `json:"solved"`

	// Unsolved lists the vertices still without a position, sorted.
	Unsolved []string `json:"unsolved"`

	// Converged is true when solving stopped because a round solved
	// nothing, false when the round cap was hit first.
	Converged bool `json:"converged"`

	Duration time.Duration `json:"duration"`
}

// Iterate runs one round: it solves every problem returned by
// [Graph.Solvable] and commits the results after all of them finished.
// It returns the vertices positioned in this round, in ID order.
//
// The only errors are context cancellation and invalid solver options;
// on error nothing is committed.
func (g *Graph) Iterate(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	problems := g.Solvable()
	if len(problems) == 0 {
		return []string{}, nil
	}

	results, err := g.solveAll(ctx, problems)
	if err != nil {
		return nil, err
	}

	solved := make([]string, len(problems))
	for i, p := range problems {
		g.commit(p.Vertex, results[i])
		solved[i] = p.Vertex
	}
	return solved, nil
}

func (g *Graph) solveAll(ctx context.Context, problems []Problem) ([]solver.Point, error) {
	results := make([]solver.Point, len(problems))

	if g.cfg.workers <= 1 {
		for i, p := range problems {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			x, err := g.solveOne(ctx, p)
			if err != nil {
				return nil, err
			}
			results[i] = x
		}
		return results, nil
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.workers)
	for i, p := range problems {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			x, err := g.solveOne(ctx, p)
			if err != nil {
				return err
			}
			results[i] = x
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (g *Graph) solveOne(ctx context.Context, p Problem) (solver.Point, error) {
	s, err := solver.New(p.Anchors, p.Distances, g.cfg.solver)
	if err != nil {
		return solver.Point{}, fmt.Errorf("vertex %q: %w", p.Vertex, err)
	}
	x, err := s.SolveContext(ctx)
	if err != nil {
		return solver.Point{}, fmt.Errorf("vertex %q: %w", p.Vertex, err)
	}
	g.cfg.logger.Debug("solved vertex",
		"vertex", p.Vertex,
		"anchors", s.Len(),
		"x", x.X,
		"y", x.Y,
		"cost", s.Cost(x))
	return x, nil
}

// Solve repeats [Graph.Iterate] until a round positions nothing or the
// round cap is reached. Vertices left unsolved are reported, not treated
// as an error. Calling Solve on a fully solved graph runs a single empty
// round and changes nothing.
func (g *Graph) Solve(ctx context.Context) (*Report, error) {
	hooks := g.hooks()
	logger := g.cfg.logger
	start := time.Now()

	hooks.OnSolveStart(ctx, g.VertexCount(), g.PositionCount())
	logger.Debug("solve started",
		"vertices", g.VertexCount(),
		"edges", g.EdgeCount(),
		"positioned", g.PositionCount())

	report := &Report{Solved: []string{}}
	for round := 1; round <= g.cfg.maxRounds; round++ {
		roundStart := time.Now()
		solved, err := g.Iterate(ctx)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}

		stats := RoundStats{
			Round:    round,
			Solved:   solved,
			Unsolved: g.VertexCount() - g.PositionCount(),
			Duration: time.Since(roundStart),
		}
		report.Rounds = append(report.Rounds, stats)
		report.Solved = append(report.Solved, solved...)

		hooks.OnRoundComplete(ctx, observability.RoundEvent{
			Round:    stats.Round,
			Solved:   stats.Solved,
			Unsolved: stats.Unsolved,
			Duration: stats.Duration,
		})
		logger.Debug("round complete", "round", round, "solved", len(solved), "unsolved", stats.Unsolved)

		if len(solved) == 0 {
			report.Converged = true
			break
		}
	}

	report.Unsolved = g.Unsolved()
	report.Duration = time.Since(start)

	hooks.OnSolveComplete(ctx, len(report.Solved), len(report.Unsolved), len(report.Rounds), report.Duration)
	if len(report.Unsolved) > 0 {
		logger.Warn("unsolvable positions", "count", len(report.Unsolved))
	}
	return report, nil
}

func (g *Graph) hooks() observability.SolveHooks {
	if g.cfg.hooks != nil {
		return g.cfg.hooks
	}
	return observability.Solve()
}
