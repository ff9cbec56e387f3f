package tpg

// ClosureSet is the set of vertices and edges reachable from a root.
// Vertices are listed in breadth-first discovery order, root first.
type ClosureSet struct {
	vertices    []*Vertex
	edges       []*Edge
	vertexIndex map[*Vertex]int
	edgeIndex   map[*Edge]int
}

// Closure walks the outgoing edges of root breadth-first and collects every
// reachable vertex and every traversed edge, each exactly once.
// The source graph is not modified.
func Closure(root *Vertex) (*ClosureSet, error) {
	if root == nil || root.graph == nil {
		return nil, ErrInvalidVertex
	}

	c := &ClosureSet{
		vertexIndex: map[*Vertex]int{root: 0},
		edgeIndex:   make(map[*Edge]int),
		vertices:    []*Vertex{root},
	}

	for head := 0; head < len(c.vertices); head++ {
		for _, e := range c.vertices[head].outgoing {
			if _, seen := c.edgeIndex[e]; seen {
				continue
			}
			c.edgeIndex[e] = len(c.edges)
			c.edges = append(c.edges, e)

			dst := e.destination
			if _, seen := c.vertexIndex[dst]; !seen {
				c.vertexIndex[dst] = len(c.vertices)
				c.vertices = append(c.vertices, dst)
			}
		}
	}
	return c, nil
}

// Root returns the vertex the closure was computed from.
func (c *ClosureSet) Root() *Vertex { return c.vertices[0] }

// Vertices returns the reachable vertices, root first.
func (c *ClosureSet) Vertices() []*Vertex {
	return append([]*Vertex(nil), c.vertices...)
}

// Edges returns the traversed edges in discovery order.
func (c *ClosureSet) Edges() []*Edge {
	return append([]*Edge(nil), c.edges...)
}

// ContainsVertex reports whether v is reachable from the root.
func (c *ClosureSet) ContainsVertex(v *Vertex) bool {
	_, ok := c.vertexIndex[v]
	return ok
}

// ContainsEdge reports whether e was traversed.
func (c *ClosureSet) ContainsEdge(e *Edge) bool {
	_, ok := c.edgeIndex[e]
	return ok
}

// VertexIndex returns the discovery position of v, or -1.
func (c *ClosureSet) VertexIndex(v *Vertex) int {
	if i, ok := c.vertexIndex[v]; ok {
		return i
	}
	return -1
}

// NbTeams counts the Team vertices of the closure.
func (c *ClosureSet) NbTeams() int {
	n := 0
	for _, v := range c.vertices {
		if v.kind == KindTeam {
			n++
		}
	}
	return n
}

// NbActions counts the Action vertices of the closure.
func (c *ClosureSet) NbActions() int {
	return len(c.vertices) - c.NbTeams()
}

// ReachableVertices returns the vertices reachable from root, root included.
func ReachableVertices(root *Vertex) ([]*Vertex, error) {
	c, err := Closure(root)
	if err != nil {
		return nil, err
	}
	return c.vertices, nil
}

// ReachableEdges returns the edges traversed when walking from root.
func ReachableEdges(root *Vertex) ([]*Edge, error) {
	c, err := Closure(root)
	if err != nil {
		return nil, err
	}
	return c.edges, nil
}
