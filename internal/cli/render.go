package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mlateration/pkg/errors"
	"github.com/matzehuels/mlateration/pkg/graph"
	"github.com/matzehuels/mlateration/pkg/render/nodelink"
)

const (
	formatDOT = "dot"
	formatSVG = "svg"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	solverFlags
	output     string
	format     string
	scale      float64
	detailed   bool
	edgeLabels bool
}

func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{format: formatSVG, scale: nodelink.DefaultScale}

	cmd := &cobra.Command{
		Use:   "render [solution|graph]",
		Short: "Draw solved positions as DOT or SVG",
		Long: `Render draws every positioned vertex at its coordinates: anchors as boxes,
solved vertices as ellipses. Edges whose drawn length disagrees with the
measured distance are dashed red.

The input is a solution file written by "mlat solve". A graph document is
accepted too and solved first, with the same flags as solve.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateFormat(opts.format, formatDOT, formatSVG); err != nil {
				return err
			}
			if opts.output != "" {
				if err := errors.ValidatePath(opts.output); err != nil {
					return err
				}
			}
			return c.runRender(cmd, args[0], &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <input>.<format>)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg, dot")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "inches per coordinate unit")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label vertices with coordinates")
	cmd.Flags().BoolVar(&opts.edgeLabels, "edge-labels", false, "label edges with measured distance")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, input string, opts *renderOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	sol, err := c.loadSolution(ctx, cmd, input, opts)
	if err != nil {
		return err
	}

	dot := nodelink.ToDOT(sol, nodelink.Options{
		Scale:      opts.scale,
		Detailed:   opts.detailed,
		EdgeLabels: opts.edgeLabels,
	})
	data := []byte(dot)
	if opts.format == formatSVG {
		if data, err = nodelink.RenderSVG(ctx, dot); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "render svg")
		}
	}

	out := opts.output
	if out == "" {
		out = renderPath(input, opts.format)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", out)
	}
	prog.done("Rendered " + out)

	printSuccess("Rendered %d positions", len(sol.Positions))
	printFile(out)
	return nil
}

// loadSolution reads input as a solution file, or else as a graph document
// that is solved on the spot.
func (c *CLI) loadSolution(ctx context.Context, cmd *cobra.Command, input string, opts *renderOpts) (*graph.Solution, error) {
	if format, err := graph.FormatFromPath(input); err == nil && format == graph.FormatJSON {
		if sol, err := graph.ReadSolutionFile(input); err == nil && len(sol.Positions) > 0 {
			return sol, nil
		}
	}

	doc, err := graph.ReadGraphFile(input)
	if err != nil {
		return nil, err
	}
	loggerFromContext(ctx).Info("Input is a graph document, solving first", "file", input)

	runner, err := c.newRunner(ctx, opts.cache, opts.noCache)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	result, err := solveWithSpinner(ctx, runner, doc, opts.options(cmd, c.Config))
	if err != nil {
		return nil, err
	}
	return result.Solution, nil
}

// renderPath derives the output path: "site.solution.json" becomes
// "site.svg".
func renderPath(input, format string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	base = strings.TrimSuffix(base, ".solution")
	return base + "." + format
}
