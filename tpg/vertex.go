package tpg

import (
	"fmt"

	"github.com/BaSui01/fedtpg/program"
)

// Kind tags the variant of a Vertex.
type Kind uint8

const (
	// KindTeam is an internal decision vertex.
	KindTeam Kind = iota
	// KindAction is a terminal vertex bound to an action ID.
	KindAction
)

// String returns the export name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTeam:
		return "team"
	case KindAction:
		return "action"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "team":
		return KindTeam, nil
	case "action":
		return KindAction, nil
	default:
		return 0, fmt.Errorf("unknown vertex kind: %q", s)
	}
}

// Vertex is a node of a Graph. Its identity is its pointer.
type Vertex struct {
	kind     Kind
	actionID uint64
	graph    *Graph
	incoming []*Edge
	outgoing []*Edge
}

// Kind returns the vertex variant.
func (v *Vertex) Kind() Kind { return v.kind }

// IsTeam reports whether v is a Team vertex.
func (v *Vertex) IsTeam() bool { return v.kind == KindTeam }

// IsAction reports whether v is an Action vertex.
func (v *Vertex) IsAction() bool { return v.kind == KindAction }

// ActionID returns the action identifier. Meaningless for teams.
func (v *Vertex) ActionID() uint64 { return v.actionID }

// Graph returns the owning graph, or nil once the vertex was removed.
func (v *Vertex) Graph() *Graph { return v.graph }

// IncomingEdges returns a copy of the incoming edge list.
func (v *Vertex) IncomingEdges() []*Edge {
	return append([]*Edge(nil), v.incoming...)
}

// OutgoingEdges returns a copy of the outgoing edge list.
func (v *Vertex) OutgoingEdges() []*Edge {
	return append([]*Edge(nil), v.outgoing...)
}

// NbIncomingEdges returns the in-degree of v.
func (v *Vertex) NbIncomingEdges() int { return len(v.incoming) }

// NbOutgoingEdges returns the out-degree of v.
func (v *Vertex) NbOutgoingEdges() int { return len(v.outgoing) }

// IsRoot reports whether v has no incoming edge.
func (v *Vertex) IsRoot() bool { return len(v.incoming) == 0 }

func (v *Vertex) String() string {
	if v == nil {
		return "<nil>"
	}
	if v.kind == KindAction {
		return fmt.Sprintf("action(%d)", v.actionID)
	}
	return fmt.Sprintf("team(%p)", v)
}

// Edge is a directed, scored connection between two vertices of one graph.
type Edge struct {
	source      *Vertex
	destination *Vertex
	program     *program.Program
	graph       *Graph
}

// Source returns the source vertex.
func (e *Edge) Source() *Vertex { return e.source }

// Destination returns the destination vertex.
func (e *Edge) Destination() *Vertex { return e.destination }

// Program returns the scoring program. It may be shared with other edges of the graph.
func (e *Edge) Program() *program.Program { return e.program }

// Graph returns the owning graph, or nil once the edge was removed.
func (e *Edge) Graph() *Graph { return e.graph }

func removeEdgeFrom(list []*Edge, e *Edge) []*Edge {
	for i, x := range list {
		if x == e {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
