package learn

import (
	"errors"
	"fmt"
	"math"

	"github.com/BaSui01/fedtpg/program"
	"github.com/BaSui01/fedtpg/tpg"
)

// ErrNoAction is returned when a walk from a root reaches a team without any usable edge.
var ErrNoAction = errors.New("learn: no action reachable")

// ExecutionEngine walks a graph from a root to an action. At each team the
// outgoing edge with the highest bid wins; edges leading back to a team
// already visited during the walk are skipped, so cycles always terminate.
type ExecutionEngine struct {
	set program.Set
}

// NewExecutionEngine creates an engine running programs over set.
func NewExecutionEngine(set program.Set) *ExecutionEngine {
	return &ExecutionEngine{set: set}
}

// ExecuteFromRoot returns the action chosen by root for the observation data
// and the list of visited vertices, root first.
func (e *ExecutionEngine) ExecuteFromRoot(root *tpg.Vertex, data []float64) (uint64, []*tpg.Vertex, error) {
	if root == nil || root.Graph() == nil {
		return 0, nil, tpg.ErrInvalidVertex
	}

	visited := map[*tpg.Vertex]bool{root: true}
	trace := []*tpg.Vertex{root}
	current := root
	for current.IsTeam() {
		var (
			best    *tpg.Edge
			bestBid = math.Inf(-1)
		)
		for _, edge := range current.OutgoingEdges() {
			if visited[edge.Destination()] && edge.Destination().IsTeam() {
				continue
			}
			bid, err := edge.Program().Execute(e.set, data)
			if err != nil {
				return 0, trace, fmt.Errorf("execute edge from %v: %w", current, err)
			}
			if best == nil || bid > bestBid {
				best, bestBid = edge, bid
			}
		}
		if best == nil {
			return 0, trace, fmt.Errorf("%w from %v", ErrNoAction, current)
		}
		current = best.Destination()
		visited[current] = true
		trace = append(trace, current)
	}
	return current.ActionID(), trace, nil
}
