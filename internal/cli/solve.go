package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mlateration/pkg/errors"
	"github.com/matzehuels/mlateration/pkg/graph"
	"github.com/matzehuels/mlateration/pkg/pipeline"
)

// solverFlags are the pipeline settings shared by solve and render.
type solverFlags struct {
	learningRate float64
	iterations   int
	maxRounds    int
	workers      int
	cache        string
	noCache      bool
	refresh      bool
}

func (f *solverFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.learningRate, "lr", pipeline.DefaultLearningRate, "gradient descent learning rate")
	cmd.Flags().IntVar(&f.iterations, "iterations", pipeline.DefaultIterations, "descent steps per vertex")
	cmd.Flags().IntVar(&f.maxRounds, "rounds", pipeline.DefaultMaxRounds, "maximum solve rounds")
	cmd.Flags().IntVar(&f.workers, "workers", pipeline.DefaultWorkers, "vertices solved concurrently per round")
	cmd.Flags().StringVar(&f.cache, "cache", "", "cache backend: file (default), none, redis://..., mongodb://...")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached solutions")
}

// options merges flags over the config file: an explicitly set flag wins,
// otherwise the config value, otherwise the pipeline default.
func (f *solverFlags) options(cmd *cobra.Command, cfg *Config) pipeline.Options {
	opts := cfg.PipelineOptions()
	flags := cmd.Flags()
	if flags.Changed("lr") {
		opts.LearningRate = f.learningRate
	}
	if flags.Changed("iterations") {
		opts.Iterations = f.iterations
	}
	if flags.Changed("rounds") {
		opts.MaxRounds = f.maxRounds
	}
	if flags.Changed("workers") {
		opts.Workers = f.workers
	}
	opts.Refresh = f.refresh
	return opts
}

// solveOpts holds the command-line flags for the solve command.
type solveOpts struct {
	solverFlags
	output      string
	interactive bool
}

func (c *CLI) solveCommand() *cobra.Command {
	var opts solveOpts

	cmd := &cobra.Command{
		Use:   "solve [graph]",
		Short: "Compute positions for every solvable vertex of a graph",
		Long: `Solve reads a graph document (JSON, TOML or YAML) with anchor positions and
measured edge distances, positions every vertex that can be reached by
multilateration and writes a solution file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "" {
				if err := errors.ValidatePath(opts.output); err != nil {
					return err
				}
			}
			return c.runSolve(cmd.Context(), args[0], opts.options(cmd, c.Config), &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <input>.solution.json)")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "browse the solution in a terminal table")

	return cmd
}

func (c *CLI) runSolve(ctx context.Context, input string, pipeOpts pipeline.Options, opts *solveOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	doc, err := graph.ReadGraphFile(input)
	if err != nil {
		return err
	}
	logger.Debugf("Loaded %s: %d anchors, %d edges", input, len(doc.Anchors), len(doc.Edges))

	runner, err := c.newRunner(ctx, opts.cache, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	result, err := solveWithSpinner(ctx, runner, doc, pipeOpts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Solved %d of %d vertices", result.Stats.Solved, result.Stats.Vertices-result.Stats.Anchors))

	out := opts.output
	if out == "" {
		out = solutionPath(input)
	}
	if err := graph.WriteSolutionFile(result.Solution, out); err != nil {
		return err
	}

	printSuccess("Solved %s", input)
	printStats(result.Stats, result.CacheHit)
	printFile(out)
	if len(result.Solution.Unsolved) > 0 {
		printWarning("%d unsolvable: %s", len(result.Solution.Unsolved), strings.Join(result.Solution.Unsolved, ", "))
	}

	if opts.interactive {
		_, err := tea.NewProgram(newSolutionModel(result.Solution), tea.WithContext(ctx)).Run()
		return err
	}

	printNewline()
	printNextStep("Render it", fmt.Sprintf("%s render %s -f svg", appName, out))
	return nil
}

// solveWithSpinner runs the pipeline behind a spinner.
func solveWithSpinner(ctx context.Context, runner *pipeline.Runner, doc *graph.Graph, opts pipeline.Options) (*pipeline.Result, error) {
	spinner := newSpinnerWithContext(ctx, "Solving...")
	spinner.Start()
	result, err := runner.Execute(ctx, doc, opts)
	spinner.Stop()
	return result, err
}

// solutionPath derives "<input without extension>.solution.json".
func solutionPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".solution.json"
}
