package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/mlateration/pkg/cache"
	"github.com/matzehuels/mlateration/pkg/errors"
	"github.com/matzehuels/mlateration/pkg/graph"
	"github.com/matzehuels/mlateration/pkg/observability"
)

const (
	keyTypeSolution = "solution"
	keyTypeGraph    = "graph"
)

// Runner executes the pipeline with caching. It holds no per-run state, so
// one Runner may serve concurrent requests.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// SolutionTTL overrides cache.TTLSolution when positive.
	SolutionTTL time.Duration
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// means [cache.DefaultKeyer] and a nil logger discards output.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute validates doc, returns a cached solution when one exists and
// otherwise solves the graph and stores the result.
func (r *Runner) Execute(ctx context.Context, doc *graph.Graph, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}

	canonical, err := graph.MarshalGraph(doc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "marshal graph")
	}
	result := &Result{
		RunID:     uuid.NewString(),
		GraphHash: cache.Hash(canonical),
	}
	key := r.Keyer.SolutionKey(result.GraphHash, opts.KeyOpts())

	if !opts.Refresh {
		if sol, ok := r.lookup(ctx, key); ok {
			result.Solution = sol
			result.Stats = statsFromSolution(sol)
			result.CacheHit = true
			r.Logger.Debug("solution from cache", "graph", result.GraphHash[:12], "run", result.RunID)
			return result, nil
		}
	}

	start := time.Now()
	lg, err := graph.Build(doc, opts.LaterationOptions()...)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	report, err := lg.Solve(ctx)
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}

	result.Report = report
	result.Solution = graph.FromReport(lg, report)
	result.Stats = statsFromSolution(result.Solution)
	result.Stats.SolveTime = time.Since(start)

	r.Logger.Info("solved graph",
		"vertices", result.Stats.Vertices,
		"solved", result.Stats.Solved,
		"unsolved", result.Stats.Unsolved,
		"rounds", result.Stats.Rounds,
		"duration", result.Stats.SolveTime)

	if data, err := graph.MarshalSolution(result.Solution); err != nil {
		r.Logger.Warn("solution not cached", "err", err)
	} else {
		r.store(ctx, keyTypeSolution, key, data, r.solutionTTL())
	}
	r.store(ctx, keyTypeGraph, r.Keyer.GraphKey(result.GraphHash), canonical, cache.TTLGraph)

	return result, nil
}

// Graph returns the canonical document stored for graphHash by an earlier
// Execute. A missing entry is reported with [errors.ErrCodeNotFound].
func (r *Runner) Graph(ctx context.Context, graphHash string) (*graph.Graph, error) {
	data, hit, err := r.Cache.Get(ctx, r.Keyer.GraphKey(graphHash))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "read cache")
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, keyTypeGraph)
		return nil, errors.Wrap(errors.ErrCodeNotFound, cache.ErrNotFound, "graph %s", graphHash)
	}
	observability.Cache().OnCacheHit(ctx, keyTypeGraph)
	return graph.ReadGraph(bytes.NewReader(data), graph.FormatJSON)
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) lookup(ctx context.Context, key string) (*graph.Solution, bool) {
	hooks := observability.Cache()
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "err", err)
	}
	if err != nil || !hit {
		hooks.OnCacheMiss(ctx, keyTypeSolution)
		return nil, false
	}
	sol, err := graph.UnmarshalSolution(data)
	if err != nil {
		// Unreadable entries are recomputed and overwritten.
		hooks.OnCacheMiss(ctx, keyTypeSolution)
		return nil, false
	}
	hooks.OnCacheHit(ctx, keyTypeSolution)
	return sol, true
}

func (r *Runner) store(ctx context.Context, keyType, key string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "type", keyType, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

func (r *Runner) solutionTTL() time.Duration {
	if r.SolutionTTL > 0 {
		return r.SolutionTTL
	}
	return cache.TTLSolution
}
