package tpg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/fedtpg/program"
)

// buildSampleGraph builds
//
//	root -> team -> a0
//	     \       \-> a1
//	      \-> a0
//	orphan -> a1
func buildSampleGraph(t *testing.T) (g *Graph, root, team, orphan *Vertex) {
	t.Helper()
	g = NewGraph()
	root = g.AddTeam()
	team = g.AddTeam()
	orphan = g.AddTeam()
	a0, err := g.AddAction(0)
	require.NoError(t, err)
	a1, err := g.AddAction(1)
	require.NoError(t, err)

	prog := program.New()
	for _, pair := range [][2]*Vertex{{root, team}, {root, a0}, {team, a0}, {team, a1}, {orphan, a1}} {
		_, err := g.AddEdge(pair[0], pair[1], prog)
		require.NoError(t, err)
	}
	return g, root, team, orphan
}

func TestClosure_ReachableSet(t *testing.T) {
	g, root, team, orphan := buildSampleGraph(t)

	c, err := Closure(root)
	require.NoError(t, err)

	assert.Same(t, root, c.Root())
	assert.Len(t, c.Vertices(), 4)
	assert.Len(t, c.Edges(), 4)
	assert.True(t, c.ContainsVertex(team))
	assert.False(t, c.ContainsVertex(orphan))
	assert.Equal(t, 2, c.NbTeams())
	assert.Equal(t, 2, c.NbActions())
	assert.Equal(t, 0, c.VertexIndex(root))
	assert.Equal(t, -1, c.VertexIndex(orphan))

	for _, e := range orphan.OutgoingEdges() {
		assert.False(t, c.ContainsEdge(e))
	}

	// the walk is read-only
	assert.Equal(t, 5, g.NbVertices())
	assert.Equal(t, 5, g.NbEdges())
}

func TestClosure_FromAction(t *testing.T) {
	g := NewGraph()
	a, _ := g.AddAction(4)

	c, err := Closure(a)
	require.NoError(t, err)
	assert.Equal(t, []*Vertex{a}, c.Vertices())
	assert.Empty(t, c.Edges())
}

func TestClosure_Cycle(t *testing.T) {
	g := NewGraph()
	t1 := g.AddTeam()
	t2 := g.AddTeam()
	a0, _ := g.AddAction(0)
	prog := program.New()

	_, err := g.AddEdge(t1, t2, prog)
	require.NoError(t, err)
	_, err = g.AddEdge(t2, t1, prog)
	require.NoError(t, err)
	_, err = g.AddEdge(t2, a0, prog)
	require.NoError(t, err)
	_, err = g.AddEdge(t1, t1, prog)
	require.NoError(t, err)

	c, err := Closure(t1)
	require.NoError(t, err)
	assert.Len(t, c.Vertices(), 3)
	assert.Len(t, c.Edges(), 4)
}

func TestClosure_InvalidRoot(t *testing.T) {
	_, err := Closure(nil)
	assert.True(t, errors.Is(err, ErrInvalidVertex))

	g := NewGraph()
	v := g.AddTeam()
	require.NoError(t, g.RemoveVertex(v))

	_, err = ReachableVertices(v)
	assert.True(t, errors.Is(err, ErrInvalidVertex))
	_, err = ReachableEdges(v)
	assert.True(t, errors.Is(err, ErrInvalidVertex))
}

func TestReachableHelpers(t *testing.T) {
	_, root, _, _ := buildSampleGraph(t)

	vertices, err := ReachableVertices(root)
	require.NoError(t, err)
	edges, err := ReachableEdges(root)
	require.NoError(t, err)

	assert.Len(t, vertices, 4)
	assert.Len(t, edges, 4)
}
