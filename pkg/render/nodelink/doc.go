// Package nodelink draws solved distance graphs.
//
// [ToDOT] turns a [graph.Solution] into Graphviz DOT for the neato engine
// with every node pinned at its solved coordinates, so the picture shows
// the computed geometry rather than a layout of Graphviz's choosing.
// [RenderSVG] renders that DOT in-process through go-graphviz.
//
//	dot := nodelink.ToDOT(sol, nodelink.Options{Scale: 0.5, EdgeLabels: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// Edges whose drawn length disagrees with the measured distance are
// highlighted, which makes inconsistent measurements easy to spot.
package nodelink
