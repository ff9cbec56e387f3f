package mutator

import (
	"errors"
	"fmt"

	"github.com/BaSui01/fedtpg/program"
	"github.com/BaSui01/fedtpg/tpg"
)

// ErrInvariantViolation marks a merge failure that can only come from a
// corrupted target graph. Callers must abort rather than retry.
var ErrInvariantViolation = errors.New("mutator: graph invariant violated")

type branchVertex struct {
	kind     tpg.Kind
	actionID uint64
	source   *tpg.Vertex
}

type branchEdge struct {
	src, dst int
	program  int
}

// Branch is a detached copy of the closure of a root vertex. It keeps the
// identity of the source vertices so that a self-merge can map them onto
// themselves, but it never reads the source graph again.
type Branch struct {
	source   *tpg.Graph
	vertices []branchVertex
	edges    []branchEdge
	programs []*program.Program
}

// ExtractBranch snapshots the closure of root. The owning graph must not be
// mutated while the extraction runs.
func ExtractBranch(root *tpg.Vertex) (*Branch, error) {
	closure, err := tpg.Closure(root)
	if err != nil {
		return nil, fmt.Errorf("extract branch: %w", err)
	}

	vertices := closure.Vertices()
	b := &Branch{
		source:   root.Graph(),
		vertices: make([]branchVertex, len(vertices)),
	}
	for i, v := range vertices {
		b.vertices[i] = branchVertex{kind: v.Kind(), actionID: v.ActionID(), source: v}
	}

	programs := make(map[*program.Program]int)
	for _, e := range closure.Edges() {
		p, ok := programs[e.Program()]
		if !ok {
			p = len(b.programs)
			programs[e.Program()] = p
			b.programs = append(b.programs, e.Program().Clone())
		}
		b.edges = append(b.edges, branchEdge{
			src:     closure.VertexIndex(e.Source()),
			dst:     closure.VertexIndex(e.Destination()),
			program: p,
		})
	}
	return b, nil
}

// Root returns the source vertex the branch was extracted from.
func (b *Branch) Root() *tpg.Vertex { return b.vertices[0].source }

// Source returns the graph the branch was extracted from.
func (b *Branch) Source() *tpg.Graph { return b.source }

// NbVertices returns the number of vertices in the branch.
func (b *Branch) NbVertices() int { return len(b.vertices) }

// NbEdges returns the number of edges in the branch.
func (b *Branch) NbEdges() int { return len(b.edges) }

// NbTeams returns the number of Team vertices in the branch.
func (b *Branch) NbTeams() int {
	n := 0
	for _, v := range b.vertices {
		if v.kind == tpg.KindTeam {
			n++
		}
	}
	return n
}

// ActionIDs returns the action IDs referenced by the branch, in closure order.
func (b *Branch) ActionIDs() []uint64 {
	var ids []uint64
	for _, v := range b.vertices {
		if v.kind == tpg.KindAction {
			ids = append(ids, v.actionID)
		}
	}
	return ids
}

// MergeBranch copies b into target and returns the vertex its root was mapped to.
// Merges of distinct branches into distinct targets may run concurrently.
func MergeBranch(b *Branch, target *tpg.Graph) (*tpg.Vertex, error) {
	vertexMap := make(map[*tpg.Vertex]*tpg.Vertex, len(b.vertices))
	if err := b.mergeInto(target, vertexMap); err != nil {
		return nil, err
	}
	return vertexMap[b.Root()], nil
}

func (b *Branch) mergeInto(target *tpg.Graph, vertexMap map[*tpg.Vertex]*tpg.Vertex) error {
	if target == nil {
		return fmt.Errorf("merge branch: nil target graph")
	}

	mapped := make([]*tpg.Vertex, len(b.vertices))
	for i, v := range b.vertices {
		switch {
		case target.HasVertex(v.source):
			mapped[i] = v.source
		case v.kind == tpg.KindTeam:
			mapped[i] = target.AddTeam()
		case v.kind == tpg.KindAction:
			if existing, ok := target.FindAction(v.actionID); ok {
				mapped[i] = existing
				break
			}
			created, err := target.AddAction(v.actionID)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
			}
			mapped[i] = created
		default:
			return fmt.Errorf("%w: unknown vertex kind %v", ErrInvariantViolation, v.kind)
		}
		vertexMap[v.source] = mapped[i]
	}

	for _, e := range b.edges {
		if _, err := target.AddEdge(mapped[e.src], mapped[e.dst], b.programs[e.program].Clone()); err != nil {
			return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
		}
	}
	return nil
}

// CopyTeamAndEdges copies the closure of root into target and records, for
// every source vertex of the closure, the target vertex it was mapped to.
func CopyTeamAndEdges(root *tpg.Vertex, target *tpg.Graph, vertexMap map[*tpg.Vertex]*tpg.Vertex) error {
	b, err := ExtractBranch(root)
	if err != nil {
		return err
	}
	return b.mergeInto(target, vertexMap)
}

// CopyBranch copies the closure of root into target. Team vertices are always
// duplicated, Action vertices are shared by action ID and every copied edge
// owns a fresh clone of its program. A root already owned by target is merged
// onto itself, which duplicates its edges.
func CopyBranch(root *tpg.Vertex, target *tpg.Graph) (*tpg.Vertex, error) {
	b, err := ExtractBranch(root)
	if err != nil {
		return nil, err
	}
	return MergeBranch(b, target)
}
