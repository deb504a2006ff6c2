package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/mlateration/pkg/graph"
)

// DefaultScale is the number of inches per coordinate unit.
const DefaultScale = 1.0

// MismatchTolerance is the relative difference between measured and drawn
// edge length above which an edge is highlighted.
const MismatchTolerance = 0.05

// Options configures diagram generation.
type Options struct {
	// Scale maps one coordinate unit to Scale inches. Zero means DefaultScale.
	Scale float64

	// Detailed adds coordinates to node labels.
	Detailed bool

	// EdgeLabels prints the measured distance on every edge.
	EdgeLabels bool
}

// ToDOT converts a solution to an undirected Graphviz graph laid out by
// neato with every node pinned at its solved position.
//
// Anchors are drawn as filled boxes and solved vertices as ellipses.
// Unsolved vertices have no position and are omitted, as are edges that
// touch them. Edges whose drawn length differs from the measured distance
// by more than [MismatchTolerance] are dashed red.
func ToDOT(s *graph.Solution, opts Options) string {
	scale := opts.Scale
	if scale <= 0 {
		scale = DefaultScale
	}

	pos := make(map[string]graph.Position, len(s.Positions))
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [style=filled, fillcolor=white, fontsize=14];\n")
	buf.WriteString("  edge [color=\"#555555\"];\n")
	buf.WriteString("\n")

	for _, p := range s.Positions {
		pos[p.ID] = p
		attrs := []string{
			fmt.Sprintf("label=%q", fmtLabel(p, opts.Detailed)),
			fmt.Sprintf("pos=\"%s,%s!\"", fmtFloat(p.X*scale), fmtFloat(p.Y*scale)),
		}
		if p.Anchor {
			attrs = append(attrs, "shape=box", "fillcolor=lightblue")
		} else {
			attrs = append(attrs, "shape=ellipse")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", p.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range s.Edges {
		a, okA := pos[e.From]
		b, okB := pos[e.To]
		if !okA || !okB {
			continue
		}
		var attrs []string
		if opts.EdgeLabels {
			attrs = append(attrs, fmt.Sprintf("label=%q", fmtFloat(e.Distance)))
		}
		if mismatch(a, b, e.Distance) {
			attrs = append(attrs, "color=red", "style=dashed")
		}
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %q -- %q;\n", e.From, e.To)
		} else {
			fmt.Fprintf(&buf, "  %q -- %q [%s];\n", e.From, e.To, strings.Join(attrs, ", "))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(p graph.Position, detailed bool) string {
	if !detailed {
		return p.ID
	}
	return fmt.Sprintf("%s\n(%.3f, %.3f)", p.ID, p.X, p.Y)
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func mismatch(a, b graph.Position, measured float64) bool {
	drawn := math.Hypot(a.X-b.X, a.Y-b.Y)
	if measured == 0 {
		return drawn > MismatchTolerance
	}
	return math.Abs(drawn-measured)/measured > MismatchTolerance
}

// RenderSVG renders DOT source to SVG with the embedded Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the root element so the SVG scales with its
// container.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
