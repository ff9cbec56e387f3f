package tpg

import (
	"errors"
	"fmt"

	"github.com/BaSui01/fedtpg/program"
)

var (
	// ErrInvalidVertex is returned for a nil vertex or one not owned by the graph.
	ErrInvalidVertex = errors.New("tpg: vertex does not belong to the graph")
	// ErrInvalidEdge is returned for a nil edge or one not owned by the graph.
	ErrInvalidEdge = errors.New("tpg: edge does not belong to the graph")
	// ErrDuplicateAction is returned when an action ID is already bound to a vertex.
	ErrDuplicateAction = errors.New("tpg: duplicate action id")
	// ErrActionSource is returned when an edge would leave an Action vertex.
	ErrActionSource = errors.New("tpg: action vertices cannot have outgoing edges")
	// ErrNilProgram is returned when an edge is created without a program.
	ErrNilProgram = errors.New("tpg: edge program is nil")
)

// Graph is a Tangled Program Graph. See the package documentation.
type Graph struct {
	vertices []*Vertex
	edges    []*Edge
	actions  map[uint64]*Vertex
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{actions: make(map[uint64]*Vertex)}
}

// AddTeam appends a new Team vertex.
func (g *Graph) AddTeam() *Vertex {
	v := &Vertex{kind: KindTeam, graph: g}
	g.vertices = append(g.vertices, v)
	return v
}

// AddAction appends a new Action vertex bound to id.
// An existing action with the same id is never duplicated.
func (g *Graph) AddAction(id uint64) (*Vertex, error) {
	if _, exists := g.actions[id]; exists {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateAction, id)
	}
	v := &Vertex{kind: KindAction, actionID: id, graph: g}
	g.vertices = append(g.vertices, v)
	g.actions[id] = v
	return v, nil
}

// FindAction returns the Action vertex bound to id, if any.
func (g *Graph) FindAction(id uint64) (*Vertex, bool) {
	v, ok := g.actions[id]
	return v, ok
}

// HasVertex reports whether v is owned by g.
func (g *Graph) HasVertex(v *Vertex) bool {
	return v != nil && v.graph == g
}

// HasEdge reports whether e is owned by g.
func (g *Graph) HasEdge(e *Edge) bool {
	return e != nil && e.graph == g
}

// AddEdge connects src to dst with prog. Both vertices must belong to g.
func (g *Graph) AddEdge(src, dst *Vertex, prog *program.Program) (*Edge, error) {
	if !g.HasVertex(src) {
		return nil, fmt.Errorf("edge source: %w", ErrInvalidVertex)
	}
	if !g.HasVertex(dst) {
		return nil, fmt.Errorf("edge destination: %w", ErrInvalidVertex)
	}
	if src.kind == KindAction {
		return nil, ErrActionSource
	}
	if prog == nil {
		return nil, ErrNilProgram
	}
	e := &Edge{source: src, destination: dst, program: prog, graph: g}
	g.edges = append(g.edges, e)
	src.outgoing = append(src.outgoing, e)
	dst.incoming = append(dst.incoming, e)
	return e, nil
}

// RemoveEdge detaches e from its vertices and from g.
func (g *Graph) RemoveEdge(e *Edge) error {
	if !g.HasEdge(e) {
		return ErrInvalidEdge
	}
	e.source.outgoing = removeEdgeFrom(e.source.outgoing, e)
	e.destination.incoming = removeEdgeFrom(e.destination.incoming, e)
	g.edges = removeEdgeFrom(g.edges, e)
	e.graph = nil
	return nil
}

// SetEdgeDestination redirects e to dst, keeping its source and program.
func (g *Graph) SetEdgeDestination(e *Edge, dst *Vertex) error {
	if !g.HasEdge(e) {
		return ErrInvalidEdge
	}
	if !g.HasVertex(dst) {
		return fmt.Errorf("edge destination: %w", ErrInvalidVertex)
	}
	e.destination.incoming = removeEdgeFrom(e.destination.incoming, e)
	e.destination = dst
	dst.incoming = append(dst.incoming, e)
	return nil
}

// SetEdgeProgram replaces the program of e.
func (g *Graph) SetEdgeProgram(e *Edge, prog *program.Program) error {
	if !g.HasEdge(e) {
		return ErrInvalidEdge
	}
	if prog == nil {
		return ErrNilProgram
	}
	e.program = prog
	return nil
}

// RemoveVertex removes v together with every edge touching it.
// References to v held elsewhere become invalid (v.Graph() returns nil).
func (g *Graph) RemoveVertex(v *Vertex) error {
	if !g.HasVertex(v) {
		return ErrInvalidVertex
	}
	// a self-loop sits in both lists
	for _, e := range append(v.IncomingEdges(), v.OutgoingEdges()...) {
		if !g.HasEdge(e) {
			continue
		}
		if err := g.RemoveEdge(e); err != nil {
			return err
		}
	}
	for i, x := range g.vertices {
		if x == v {
			g.vertices = append(g.vertices[:i], g.vertices[i+1:]...)
			break
		}
	}
	if v.kind == KindAction {
		delete(g.actions, v.actionID)
	}
	v.graph = nil
	return nil
}

// Vertices returns the vertices in insertion order.
func (g *Graph) Vertices() []*Vertex {
	return append([]*Vertex(nil), g.vertices...)
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []*Edge {
	return append([]*Edge(nil), g.edges...)
}

// NbVertices returns the number of vertices.
func (g *Graph) NbVertices() int { return len(g.vertices) }

// NbEdges returns the number of edges.
func (g *Graph) NbEdges() int { return len(g.edges) }

// Teams returns the Team vertices in insertion order.
func (g *Graph) Teams() []*Vertex {
	var teams []*Vertex
	for _, v := range g.vertices {
		if v.kind == KindTeam {
			teams = append(teams, v)
		}
	}
	return teams
}

// Actions returns the Action vertices in insertion order.
func (g *Graph) Actions() []*Vertex {
	var actions []*Vertex
	for _, v := range g.vertices {
		if v.kind == KindAction {
			actions = append(actions, v)
		}
	}
	return actions
}

// RootVertices returns every vertex without incoming edges, in insertion order.
func (g *Graph) RootVertices() []*Vertex {
	var roots []*Vertex
	for _, v := range g.vertices {
		if v.IsRoot() {
			roots = append(roots, v)
		}
	}
	return roots
}

// NbRootVertices returns len(RootVertices()).
func (g *Graph) NbRootVertices() int {
	n := 0
	for _, v := range g.vertices {
		if v.IsRoot() {
			n++
		}
	}
	return n
}

// IndexOf returns the position of v in the vertex list, or -1.
func (g *Graph) IndexOf(v *Vertex) int {
	if !g.HasVertex(v) {
		return -1
	}
	for i, x := range g.vertices {
		if x == v {
			return i
		}
	}
	return -1
}

// Clear removes every vertex and edge.
func (g *Graph) Clear() {
	for _, e := range g.edges {
		e.graph = nil
	}
	for _, v := range g.vertices {
		v.graph = nil
		v.incoming = nil
		v.outgoing = nil
	}
	g.vertices = nil
	g.edges = nil
	g.actions = make(map[uint64]*Vertex)
}
