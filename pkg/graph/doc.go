// Package graph defines the wire formats of mlateration: the input graph
// document and the output solution.
//
// # Graph Documents
//
// A graph document lists seeded anchors and measured distances. JSON, TOML
// and YAML use the same field names:
//
//	{
//	  "anchors": [{"id": "A", "x": 0, "y": 0}],
//	  "edges":   [{"from": "A", "to": "D", "distance": 5}]
//	}
//
//	[[anchors]]
//	id = "A"
//	x = 0.0
//	y = 0.0
//
//	[[edges]]
//	from = "A"
//	to = "D"
//	distance = 5.0
//
// Common operations:
//
//	doc, _ := graph.ReadGraphFile("site.toml")   // File → Graph
//	lg, _ := graph.Build(doc)                     // Graph → lateration.Graph
//	data, _ := graph.MarshalGraph(doc)            // canonical JSON for hashing
//
// # Solutions
//
// Solutions are JSON only:
//
//	{
//	  "positions": [{"id": "A", "x": 0, "y": 0, "anchor": true}, {"id": "D", "x": 4, "y": 3}],
//	  "edges": [{"from": "A", "to": "D", "distance": 5}],
//	  "unsolved": ["E"],
//	  "rounds": 2,
//	  "converged": true
//	}
//
// Use [FromReport] after solving and [WriteSolutionFile]/[ReadSolutionFile]
// to persist them.
package graph
