package mutator

import (
	"errors"
	"fmt"

	"github.com/BaSui01/fedtpg/program"
	"github.com/BaSui01/fedtpg/tpg"
)

// ErrNoRootTeam is returned when roots must be derived from a graph without any root team.
var ErrNoRootTeam = errors.New("mutator: graph has no root team")

// GraphMutator applies the evolutionary operators of one agent to its graph.
type GraphMutator struct {
	params   Parameters
	set      program.Set
	dataSize int
	rng      *RNG
}

// NewGraphMutator creates a mutator for observations of dataSize values.
func NewGraphMutator(params Parameters, set program.Set, dataSize int, rng *RNG) *GraphMutator {
	return &GraphMutator{params: params, set: set, dataSize: dataSize, rng: rng}
}

// RootTeams returns the Team roots of g. Orphaned Action vertices are skipped.
func RootTeams(g *tpg.Graph) []*tpg.Vertex {
	var roots []*tpg.Vertex
	for _, v := range g.RootVertices() {
		if v.IsTeam() {
			roots = append(roots, v)
		}
	}
	return roots
}

// InitRandomGraph clears g and fills it with one Action per action ID and one
// root team per action. Each team points to its own action, to a distinct
// second action when one exists, and to up to MaxInitOutgoingEdges actions in total.
func (m *GraphMutator) InitRandomGraph(g *tpg.Graph, nbActions int) error {
	if nbActions < 1 {
		return fmt.Errorf("init random graph: need at least one action, got %d", nbActions)
	}
	g.Clear()

	actions := make([]*tpg.Vertex, nbActions)
	for i := range actions {
		a, err := g.AddAction(uint64(i))
		if err != nil {
			return fmt.Errorf("init random graph: %w", err)
		}
		actions[i] = a
	}

	for i := 0; i < nbActions; i++ {
		team := g.AddTeam()
		targets := []int{i}
		if nbActions > 1 {
			other := m.rng.Int(0, nbActions-2)
			if other >= i {
				other++
			}
			targets = append(targets, other)
		}
		nbEdges := m.rng.Int(len(targets), m.params.Graph.MaxInitOutgoingEdges)
		for len(targets) < nbEdges {
			targets = append(targets, m.rng.Int(0, nbActions-1))
		}
		for _, a := range targets {
			prog := RandomProgram(m.params.Program, m.set, m.dataSize, m.rng)
			if _, err := g.AddEdge(team, actions[a], prog); err != nil {
				return fmt.Errorf("init random graph: %w", err)
			}
		}
	}
	return nil
}

// PopulateRoots adds root teams until g holds nbRoots of them. Every new root
// starts as a copy of a random existing root (same destinations, shared
// programs) and is then mutated.
func (m *GraphMutator) PopulateRoots(g *tpg.Graph, nbRoots int) error {
	parents := RootTeams(g)
	if len(parents) == 0 {
		return ErrNoRootTeam
	}
	preExisting := g.Teams()

	// mutations may hide existing roots, so the loop is bounded
	for attempts := 0; attempts < 10*nbRoots && len(RootTeams(g)) < nbRoots; attempts++ {
		parent := parents[m.rng.Int(0, len(parents)-1)]
		child := g.AddTeam()
		for _, e := range parent.OutgoingEdges() {
			if _, err := g.AddEdge(child, e.Destination(), e.Program()); err != nil {
				return fmt.Errorf("populate roots: %w", err)
			}
		}
		if err := m.MutateTeam(g, child, preExisting); err != nil {
			return fmt.Errorf("populate roots: %w", err)
		}
	}
	return nil
}

// MutateTeam applies edge deletion, edge addition, program mutation and
// destination change to the outgoing edges of team. candidates are the teams
// an edge may be redirected to. A team always keeps at least one edge to an Action.
func (m *GraphMutator) MutateTeam(g *tpg.Graph, team *tpg.Vertex, candidates []*tpg.Vertex) error {
	if !g.HasVertex(team) || !team.IsTeam() {
		return tpg.ErrInvalidVertex
	}
	gp := m.params.Graph

	if out := team.OutgoingEdges(); len(out) > 2 && m.rng.Bool(gp.PEdgeDeletion) {
		e := out[m.rng.Int(0, len(out)-1)]
		if !e.Destination().IsAction() || nbActionEdges(team) > 1 {
			if err := g.RemoveEdge(e); err != nil {
				return err
			}
		}
	}

	if edges := g.Edges(); len(edges) > 0 && team.NbOutgoingEdges() < gp.MaxOutgoingEdges && m.rng.Bool(gp.PEdgeAddition) {
		e := edges[m.rng.Int(0, len(edges)-1)]
		if e.Destination() != team {
			if _, err := g.AddEdge(team, e.Destination(), e.Program()); err != nil {
				return err
			}
		}
	}

	for _, e := range team.OutgoingEdges() {
		if m.rng.Bool(gp.PProgramMutation) {
			prog := e.Program().Clone()
			MutateProgram(prog, m.params.Program, m.set, m.dataSize, m.rng)
			if err := g.SetEdgeProgram(e, prog); err != nil {
				return err
			}
		}
		if m.rng.Bool(gp.PEdgeDestinationChange) {
			if err := m.redirect(g, team, e, candidates); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *GraphMutator) redirect(g *tpg.Graph, team *tpg.Vertex, e *tpg.Edge, candidates []*tpg.Vertex) error {
	var teams []*tpg.Vertex
	for _, c := range candidates {
		if c != team && g.HasVertex(c) {
			teams = append(teams, c)
		}
	}

	actions := g.Actions()
	if len(actions) > 0 && (len(teams) == 0 || m.rng.Bool(m.params.Graph.PEdgeDestinationIsAction)) {
		return g.SetEdgeDestination(e, actions[m.rng.Int(0, len(actions)-1)])
	}
	if len(teams) == 0 || (e.Destination().IsAction() && nbActionEdges(team) < 2) {
		return nil
	}
	return g.SetEdgeDestination(e, teams[m.rng.Int(0, len(teams)-1)])
}

func nbActionEdges(team *tpg.Vertex) int {
	n := 0
	for _, e := range team.OutgoingEdges() {
		if e.Destination().IsAction() {
			n++
		}
	}
	return n
}
