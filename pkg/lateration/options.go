package lateration

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mlateration/pkg/lateration/solver"
	"github.com/matzehuels/mlateration/pkg/observability"
)

// DefaultMaxRounds caps the number of rounds [Graph.Solve] runs.
const DefaultMaxRounds = 1000

// Option configures a [Graph].
type Option func(*config)

type config struct {
	solver    solver.Options
	maxRounds int
	workers   int
	hooks     observability.SolveHooks // nil: use the global registry
	logger    *log.Logger
}

func defaultConfig() config {
	return config{
		maxRounds: DefaultMaxRounds,
		workers:   1,
		logger:    log.NewWithOptions(io.Discard, log.Options{}),
	}
}

// WithSolverOptions sets the options passed to every point solve.
func WithSolverOptions(opts solver.Options) Option {
	return func(c *config) { c.solver = opts }
}

// WithMaxRounds caps the number of rounds. Values below 1 are ignored.
func WithMaxRounds(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxRounds = n
		}
	}
}

// WithWorkers sets how many point solves of one round may run at once.
// Values below 1 are ignored; 1 solves sequentially.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithHooks routes solve events to h instead of [observability.Solve].
func WithHooks(h observability.SolveHooks) Option {
	return func(c *config) { c.hooks = h }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
