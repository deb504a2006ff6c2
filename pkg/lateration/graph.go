package lateration

import (
	"maps"
	"slices"

	"github.com/matzehuels/mlateration/pkg/errors"
	"github.com/matzehuels/mlateration/pkg/lateration/solver"
)

// Neighbor is one adjacency entry: the vertex at the other end of an edge
// and the measured distance to it.
type Neighbor struct {
	ID       string
	Distance float64
}

// Problem is a single multilateration instance produced by [Graph.Solvable].
// Anchors[i] is the known position of the neighbour whose distance is
// Distances[i].
type Problem struct {
	Vertex    string
	Anchors   []solver.Point
	Distances []float64
}

// Graph is an undirected distance graph with a partial position assignment.
//
// The zero value is not usable; create graphs with [New].
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	vertices map[string]struct{}
	adj      map[string][]Neighbor
	pos      map[string]solver.Point
	edges    int
	cfg      config
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Graph{
		vertices: make(map[string]struct{}),
		adj:      make(map[string][]Neighbor),
		pos:      make(map[string]solver.Point),
		cfg:      cfg,
	}
}

// AddEdge records that u and v are d apart. Both vertices are added if new.
//
// It returns [errors.ErrCodeSelfLoop] when u == v, [errors.ErrCodeInvalidVertex]
// for an invalid identifier and [errors.ErrCodeInvalidDistance] for a
// negative or non-finite distance. The graph is unchanged on error.
func (g *Graph) AddEdge(u, v string, d float64) error {
	if u == v {
		return errors.New(errors.ErrCodeSelfLoop, "edge %q -> %q: self-loops are not allowed", u, v)
	}
	if err := errors.ValidateVertexID(u); err != nil {
		return err
	}
	if err := errors.ValidateVertexID(v); err != nil {
		return err
	}
	if err := errors.ValidateDistance(d); err != nil {
		return errors.New(errors.ErrCodeInvalidDistance, "edge %q -> %q: %s", u, v, errors.UserMessage(err))
	}

	g.vertices[u] = struct{}{}
	g.vertices[v] = struct{}{}
	if slices.Contains(g.adj[u], Neighbor{ID: v, Distance: d}) {
		return nil
	}
	g.adj[u] = append(g.adj[u], Neighbor{ID: v, Distance: d})
	g.adj[v] = append(g.adj[v], Neighbor{ID: u, Distance: d})
	g.edges++
	return nil
}

// AddPosition assigns a known position to u, adding u if new.
//
// Positions are append-only: assigning a vertex that already has one
// returns [errors.ErrCodePositionKnown]. Invalid identifiers and
// non-finite coordinates are rejected as well.
func (g *Graph) AddPosition(u string, p solver.Point) error {
	if err := errors.ValidateVertexID(u); err != nil {
		return err
	}
	if err := errors.ValidatePoint(p.X, p.Y); err != nil {
		return errors.New(errors.ErrCodeInvalidPoint, "vertex %q: %s", u, errors.UserMessage(err))
	}
	if _, ok := g.pos[u]; ok {
		return errors.New(errors.ErrCodePositionKnown, "position of %q is already known", u)
	}
	g.commit(u, p)
	return nil
}

// commit stores a position without validation. Callers guarantee that u is
// unpositioned.
func (g *Graph) commit(u string, p solver.Point) {
	g.vertices[u] = struct{}{}
	g.pos[u] = p
}

// Unsolved returns the vertices without a position, sorted by ID.
func (g *Graph) Unsolved() []string {
	out := make([]string, 0, len(g.vertices)-len(g.pos))
	for id := range g.vertices {
		if _, ok := g.pos[id]; !ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Solvable returns one [Problem] for every unpositioned vertex that has
// more than two positioned neighbour entries, in vertex ID order.
// Neighbours are listed in insertion order.
func (g *Graph) Solvable() []Problem {
	var out []Problem
	for _, id := range g.Unsolved() {
		var p Problem
		for _, n := range g.adj[id] {
			x, ok := g.pos[n.ID]
			if !ok {
				continue
			}
			p.Anchors = append(p.Anchors, x)
			p.Distances = append(p.Distances, n.Distance)
		}
		if len(p.Distances) >= solver.MinAnchors {
			p.Vertex = id
			out = append(out, p)
		}
	}
	return out
}

// Position returns the position of id, if known.
func (g *Graph) Position(id string) (solver.Point, bool) {
	p, ok := g.pos[id]
	return p, ok
}

// IsPositioned reports whether id has a position.
func (g *Graph) IsPositioned(id string) bool {
	_, ok := g.pos[id]
	return ok
}

// Positions returns a copy of the position assignment.
func (g *Graph) Positions() map[string]solver.Point {
	return maps.Clone(g.pos)
}

// Vertices returns all vertex IDs, sorted.
func (g *Graph) Vertices() []string {
	return slices.Sorted(maps.Keys(g.vertices))
}

// Neighbors returns a copy of the adjacency entries of id.
func (g *Graph) Neighbors(id string) []Neighbor {
	return slices.Clone(g.adj[id])
}

// VertexCount returns the number of vertices.
func (g *Graph) VertexCount() int { return len(g.vertices) }

// EdgeCount returns the number of distinct undirected edge entries.
func (g *Graph) EdgeCount() int { return g.edges }

// PositionCount returns the number of positioned vertices.
func (g *Graph) PositionCount() int { return len(g.pos) }
