package lateration_test

import (
	"context"
	"fmt"
	"math"

	"github.com/matzehuels/mlateration/pkg/lateration"
	"github.com/matzehuels/mlateration/pkg/lateration/solver"
)

func Example() {
	g := lateration.New()

	// Three anchors with known positions.
	_ = g.AddPosition("A", solver.Point{X: 0, Y: 0})
	_ = g.AddPosition("B", solver.Point{X: 2, Y: 0})
	_ = g.AddPosition("C", solver.Point{X: 0, Y: 2})

	// D sits at (1, 1); E is only connected to D.
	_ = g.AddEdge("D", "A", math.Sqrt2)
	_ = g.AddEdge("D", "B", math.Sqrt2)
	_ = g.AddEdge("D", "C", math.Sqrt2)
	_ = g.AddEdge("E", "D", 1)

	report, err := g.Solve(context.Background())
	if err != nil {
		panic(err)
	}

	p, _ := g.Position("D")
	fmt.Printf("D (%.2f, %.2f)\n", p.X, p.Y)
	fmt.Println("rounds:", len(report.Rounds))
	fmt.Println("unsolved:", report.Unsolved)
	// Output:
	// D (1.00, 1.00)
	// rounds: 2
	// unsolved: [E]
}

func ExampleGraph_AddEdge_selfLoop() {
	g := lateration.New()
	err := g.AddEdge("A", "A", 1)
	fmt.Println(err)
	// Output: SELF_LOOP: edge "A" -> "A": self-loops are not allowed
}
