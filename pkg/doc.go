// Package pkg holds the mlat libraries.
//
// # Overview
//
// mlat places the vertices of a distance graph in the plane. A handful of
// anchors have known coordinates; every other vertex is positioned by
// multilateration as soon as three of its neighbours are, and newly placed
// vertices act as anchors for the next round.
//
//  1. [lateration] - the round cascade over a distance graph
//  2. [lateration/solver] - gradient-descent point solver
//  3. [graph] - graph and solution documents (JSON, TOML, YAML)
//  4. [pipeline] - decode → solve → cache orchestration
//  5. [cache] - file, Redis and MongoDB result caches
//  6. [render/nodelink] - DOT/SVG drawings of solutions
//  7. [observability], [errors], [buildinfo] - supporting packages
//
// # Data Flow
//
//	graph document (site.toml)
//	         ↓
//	    [graph] package (decode, validate, canonical hash)
//	         ↓
//	    [lateration] package (rounds of point solves)
//	         ↓
//	    [graph.Solution] → JSON, DOT, SVG
//
// # Quick Start
//
//	doc, err := graph.ReadGraphFile("site.toml")
//	if err != nil {
//	    return err
//	}
//	g, err := graph.Build(doc)
//	if err != nil {
//	    return err
//	}
//	report, err := g.Solve(ctx)
//	fmt.Println(report.Solved)
package pkg
