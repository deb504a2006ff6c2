package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	mlerrors "github.com/matzehuels/mlateration/pkg/errors"
	"github.com/matzehuels/mlateration/pkg/lateration"
)

// =============================================================================
// Solution - Output Document
// =============================================================================

// Solution is the output document: every positioned vertex, the edges of
// the input, the vertices that could not be solved and round statistics.
// Solutions are always JSON.
type Solution struct {
	Positions []Position `json:"positions"`
	Edges     []Edge     `json:"edges"`
	Unsolved  []string   `json:"unsolved"`
	Rounds    int        `json:"rounds"`
	Converged bool       `json:"converged"`
}

// Position is a positioned vertex. Anchor is true for seeded positions and
// false for solved ones.
type Position struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Anchor bool    `json:"anchor,omitempty"`
}

// FromReport builds a Solution from a solved graph and its report.
// Positions are sorted by ID; each undirected edge entry appears once.
func FromReport(g *lateration.Graph, report *lateration.Report) *Solution {
	solved := make(map[string]bool, len(report.Solved))
	for _, id := range report.Solved {
		solved[id] = true
	}

	sol := &Solution{
		Positions: []Position{},
		Edges:     []Edge{},
		Unsolved:  append([]string{}, report.Unsolved...),
		Rounds:    len(report.Rounds),
		Converged: report.Converged,
	}
	for _, id := range g.Vertices() {
		if p, ok := g.Position(id); ok {
			sol.Positions = append(sol.Positions, Position{ID: id, X: p.X, Y: p.Y, Anchor: !solved[id]})
		}
		for _, n := range g.Neighbors(id) {
			if id < n.ID {
				sol.Edges = append(sol.Edges, Edge{From: id, To: n.ID, Distance: n.Distance})
			}
		}
	}
	return sol
}

// Lookup returns the position of id.
func (s *Solution) Lookup(id string) (Position, bool) {
	for _, p := range s.Positions {
		if p.ID == id {
			return p, true
		}
	}
	return Position{}, false
}

// MarshalSolution encodes s as indented JSON.
func MarshalSolution(s *Solution) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalSolution decodes a JSON solution.
func UnmarshalSolution(data []byte) (*Solution, error) {
	var s Solution
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, mlerrors.Wrap(mlerrors.ErrCodeInvalidFormat, err, "decode solution")
	}
	return &s, nil
}

// WriteSolutionFile writes s to path as JSON.
func WriteSolutionFile(s *Solution, path string) error {
	data, err := MarshalSolution(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSolutionFile reads a JSON solution from path.
func ReadSolutionFile(path string) (*Solution, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, mlerrors.Wrap(mlerrors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s, err := UnmarshalSolution(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
