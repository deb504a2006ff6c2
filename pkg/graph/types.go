package graph

import (
	"cmp"
	"slices"

	"github.com/matzehuels/mlateration/pkg/errors"
)

// Document formats.
const (
	FormatJSON = "json"
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// Formats lists the accepted graph document formats.
var Formats = []string{FormatJSON, FormatTOML, FormatYAML}

// =============================================================================
// Graph - Input Document
// =============================================================================

// Graph is the input document: seeded anchor positions and measured
// distances. The same field names are used in every format.
type Graph struct {
	Anchors []Anchor `json:"anchors" toml:"anchors" yaml:"anchors"`
	Edges   []Edge   `json:"edges" toml:"edges" yaml:"edges"`
}

// Anchor is a vertex with a known position.
type Anchor struct {
	ID string  `json:"id" toml:"id" yaml:"id"`
	X  float64 `json:"x" toml:"x" yaml:"x"`
	Y  float64 `json:"y" toml:"y" yaml:"y"`
}

// Edge is a measured distance between two vertices. Direction carries no
// meaning.
type Edge struct {
	From     string  `json:"from" toml:"from" yaml:"from"`
	To       string  `json:"to" toml:"to" yaml:"to"`
	Distance float64 `json:"distance" toml:"distance" yaml:"distance"`
}

// Validate checks identifiers, coordinates and distances, and rejects
// duplicate anchors and self-loops. It reports the first problem found.
func (g *Graph) Validate() error {
	seen := make(map[string]bool, len(g.Anchors))
	for i, a := range g.Anchors {
		if err := errors.ValidateVertexID(a.ID); err != nil {
			return errors.Wrap(errors.GetCode(err), err, "anchor %d", i)
		}
		if err := errors.ValidatePoint(a.X, a.Y); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPoint, err, "anchor %q", a.ID)
		}
		if seen[a.ID] {
			return errors.New(errors.ErrCodePositionKnown, "anchor %q listed twice", a.ID)
		}
		seen[a.ID] = true
	}
	for i, e := range g.Edges {
		if e.From == e.To {
			return errors.New(errors.ErrCodeSelfLoop, "edge %d: %q -> %q is a self-loop", i, e.From, e.To)
		}
		for _, id := range []string{e.From, e.To} {
			if err := errors.ValidateVertexID(id); err != nil {
				return errors.Wrap(errors.GetCode(err), err, "edge %d", i)
			}
		}
		if err := errors.ValidateDistance(e.Distance); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidDistance, err, "edge %d (%s -> %s)", i, e.From, e.To)
		}
	}
	return nil
}

// Canonical returns a normalised copy: anchors sorted by ID, every edge
// oriented From < To, edges sorted and exact duplicates dropped. Two
// documents that describe the same problem have equal canonical forms.
func (g *Graph) Canonical() Graph {
	out := Graph{
		Anchors: append([]Anchor{}, g.Anchors...),
		Edges:   make([]Edge, 0, len(g.Edges)),
	}
	slices.SortFunc(out.Anchors, func(a, b Anchor) int { return cmp.Compare(a.ID, b.ID) })

	for _, e := range g.Edges {
		if e.To < e.From {
			e.From, e.To = e.To, e.From
		}
		out.Edges = append(out.Edges, e)
	}
	slices.SortFunc(out.Edges, func(a, b Edge) int {
		return cmp.Or(
			cmp.Compare(a.From, b.From),
			cmp.Compare(a.To, b.To),
			cmp.Compare(a.Distance, b.Distance),
		)
	})
	out.Edges = slices.Compact(out.Edges)
	return out
}
