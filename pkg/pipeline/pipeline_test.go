package pipeline

import (
	"context"
	stderrors "errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mlateration/pkg/cache"
	"github.com/matzehuels/mlateration/pkg/errors"
	"github.com/matzehuels/mlateration/pkg/graph"
	"github.com/matzehuels/mlateration/pkg/observability"
)

func testDoc() *graph.Graph {
	return &graph.Graph{
		Anchors: []graph.Anchor{{ID: "A", X: 0, Y: 0}, {ID: "B", X: 2, Y: 0}, {ID: "C", X: 0, Y: 2}},
		Edges: []graph.Edge{
			{From: "D", To: "A", Distance: math.Sqrt2},
			{From: "D", To: "B", Distance: math.Sqrt2},
			{From: "D", To: "C", Distance: math.Sqrt2},
			{From: "E", To: "D", Distance: 1},
		},
	}
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestValidateAndSetDefaults(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if o.LearningRate != DefaultLearningRate || o.Iterations != DefaultIterations ||
		o.MaxRounds != DefaultMaxRounds || o.Workers != DefaultWorkers || o.Logger == nil {
		t.Errorf("defaults not applied: %+v", o)
	}

	// Idempotent.
	o.Iterations = 5
	if err := o.ValidateAndSetDefaults(); err != nil || o.Iterations != 5 {
		t.Errorf("second call changed options: %+v, %v", o, err)
	}
}

func TestValidateAndSetDefaultsErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"negative rate", Options{LearningRate: -0.1}},
		{"negative iterations", Options{Iterations: -1}},
		{"negative rounds", Options{MaxRounds: -1}},
		{"negative workers", Options{Workers: -2}},
		{"too many workers", Options{Workers: MaxWorkers + 1}},
		{"too many iterations", Options{Iterations: MaxIterations + 1}},
		{"too many rounds", Options{MaxRounds: MaxRoundsCap + 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("ValidateAndSetDefaults() = %v, want %s", err, errors.ErrCodeInvalidInput)
			}
		})
	}
}

func TestExecute(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	result, err := r.Execute(context.Background(), testDoc(), Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.RunID == "" || len(result.GraphHash) != 64 {
		t.Errorf("RunID %q, GraphHash %q", result.RunID, result.GraphHash)
	}
	if result.CacheHit {
		t.Error("NullCache run reported a cache hit")
	}
	if result.Report == nil || !result.Report.Converged {
		t.Errorf("Report = %+v", result.Report)
	}

	want := Stats{Vertices: 5, Edges: 4, Anchors: 3, Solved: 1, Unsolved: 1, Rounds: 2}
	got := result.Stats
	got.SolveTime = 0
	if got != want {
		t.Errorf("Stats = %+v, want %+v", got, want)
	}

	d, ok := result.Solution.Lookup("D")
	if !ok || math.Abs(d.X-1) > 1e-3 || math.Abs(d.Y-1) > 1e-3 {
		t.Errorf("D = %+v", d)
	}
}

func TestExecuteCache(t *testing.T) {
	observability.Reset()
	defer observability.Reset()
	hooks := &countingCacheHooks{}
	observability.SetCacheHooks(hooks)

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, quietLogger())
	ctx := context.Background()

	first, err := r.Execute(ctx, testDoc(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit {
		t.Fatal("first run should miss")
	}

	// Same problem, different edge order and orientation.
	doc := testDoc()
	doc.Edges[0], doc.Edges[3] = graph.Edge{From: "D", To: "E", Distance: 1}, graph.Edge{From: "A", To: "D", Distance: math.Sqrt2}

	second, err := r.Execute(ctx, doc, Options{Workers: 3})
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit {
		t.Fatal("second run should hit the cache")
	}
	if second.GraphHash != first.GraphHash {
		t.Error("equivalent documents hashed differently")
	}
	if second.RunID == first.RunID {
		t.Error("RunID reused across runs")
	}
	if second.Report != nil {
		t.Error("cached result should not carry a report")
	}
	for _, p := range first.Solution.Positions {
		q, ok := second.Solution.Lookup(p.ID)
		if !ok || q != p {
			t.Errorf("%s: fresh %+v, cached %+v", p.ID, p, q)
		}
	}
	if second.Stats.Solved != first.Stats.Solved || second.Stats.Rounds != first.Stats.Rounds {
		t.Errorf("cached stats %+v differ from fresh %+v", second.Stats, first.Stats)
	}

	third, err := r.Execute(ctx, testDoc(), Options{Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheHit {
		t.Error("Refresh should bypass the cache")
	}

	other, err := r.Execute(ctx, testDoc(), Options{Iterations: 10})
	if err != nil {
		t.Fatal(err)
	}
	if other.CacheHit {
		t.Error("different solver settings should not share a cache entry")
	}

	if hooks.hits != 1 || hooks.misses != 2 || hooks.sets == 0 {
		t.Errorf("cache hooks: %d hits, %d misses, %d sets", hooks.hits, hooks.misses, hooks.sets)
	}
}

func TestExecuteInvalid(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	ctx := context.Background()

	doc := testDoc()
	doc.Edges = append(doc.Edges, graph.Edge{From: "Z", To: "Z", Distance: 1})
	if _, err := r.Execute(ctx, doc, Options{}); !errors.Is(err, errors.ErrCodeSelfLoop) {
		t.Errorf("self-loop document: %v", err)
	}

	if _, err := r.Execute(ctx, testDoc(), Options{Workers: -1}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("invalid options: %v", err)
	}
}

func TestExecuteStopsAtDeadline(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Execute(ctx, testDoc(), Options{Iterations: MaxIterations, Workers: 2})
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Execute() = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Execute returned after %v, long past its 50ms deadline", elapsed)
	}
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	if r.Logger == nil || r.Logger == log.Default() {
		t.Error("nil logger should become a discarding logger, not log.Default()")
	}
	if _, ok := r.Cache.(cache.NullCache); !ok {
		t.Errorf("Cache = %T, want NullCache", r.Cache)
	}
	if _, ok := r.Keyer.(cache.DefaultKeyer); !ok {
		t.Errorf("Keyer = %T, want DefaultKeyer", r.Keyer)
	}
}

func TestExecuteCancelled(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Execute(ctx, testDoc(), Options{}); err == nil {
		t.Error("Execute with cancelled context should fail")
	}
}

func TestRunnerGraph(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, cache.NewScopedKeyer(nil, "test:"), quietLogger())
	ctx := context.Background()

	if _, err := r.Graph(ctx, "deadbeef"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Graph(unknown) = %v, want %s", err, errors.ErrCodeNotFound)
	}

	result, err := r.Execute(ctx, testDoc(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	doc, err := r.Graph(ctx, result.GraphHash)
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(doc.Anchors) != 3 || len(doc.Edges) != 4 {
		t.Errorf("stored graph = %+v", doc)
	}
}

type countingCacheHooks struct {
	observability.NoopCacheHooks
	hits, misses, sets int
}

func (h *countingCacheHooks) OnCacheHit(_ context.Context, keyType string) {
	if keyType == keyTypeSolution {
		h.hits++
	}
}

func (h *countingCacheHooks) OnCacheMiss(_ context.Context, keyType string) {
	if keyType == keyTypeSolution {
		h.misses++
	}
}

func (h *countingCacheHooks) OnCacheSet(context.Context, string, int) { h.sets++ }
