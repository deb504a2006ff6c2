// Package lateration positions the vertices of a distance graph by repeated
// multilateration.
//
// # Overview
//
// A [Graph] holds undirected edges weighted by measured distances and a
// partial, append-only assignment of known positions. Vertices with known
// positions act as anchors. Solving proceeds in rounds:
//
//  1. Find every unpositioned vertex with at least three positioned
//     neighbour entries ([Graph.Solvable]).
//  2. Solve each of them independently with [solver.Solver].
//  3. Commit all results once the whole round has finished.
//
// Rounds repeat until one solves nothing (a fixed point) or the round cap
// is reached. Positions found in round n become anchors in round n+1, so a
// handful of seeded anchors can cascade through a well-connected graph.
//
// # Vertex States
//
//	Unknown ──(≥3 positioned neighbours)──▶ Solvable ──(round commits)──▶ Positioned
//
// Seeded anchors start Positioned. Positioned is terminal: there is no
// removal or retraction.
//
// # Edges
//
// Adjacency entries behave as a set of (neighbour, distance) pairs. Adding
// an identical edge twice stores it once; the same pair with a different
// distance adds a second entry, and both count towards solvability.
// Self-loops are rejected.
//
// # Concurrency
//
// Solves within a round read only the positions known at the start of the
// round, so they may run on several goroutines ([WithWorkers]). Results are
// committed after every solve finished, which makes the outcome identical
// to a sequential run. A Graph itself is not safe for concurrent mutation.
//
// # Progress
//
// The package never prints. Per-round statistics are returned in a [Report]
// and emitted through [observability.SolveHooks]; debug output goes to an
// optional charmbracelet logger.
package lateration
