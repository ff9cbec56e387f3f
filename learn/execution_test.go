package learn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/fedtpg/program"
	"github.com/BaSui01/fedtpg/tpg"
)

func TestExecutionEngine_HighestBidWins(t *testing.T) {
	g := tpg.NewGraph()
	root := g.AddTeam()
	t1 := g.AddTeam()
	a0, _ := g.AddAction(0)
	a1, _ := g.AddAction(1)

	mustEdge(t, g, root, a0, constProgram(1))
	mustEdge(t, g, root, t1, constProgram(5))
	mustEdge(t, g, t1, root, constProgram(100))
	mustEdge(t, g, t1, a1, constProgram(0.5))

	engine := NewExecutionEngine(program.DefaultSet())
	action, trace, err := engine.ExecuteFromRoot(root, []float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), action)
	assert.Equal(t, []*tpg.Vertex{root, t1, a1}, trace)
}

func TestExecutionEngine_Errors(t *testing.T) {
	engine := NewExecutionEngine(program.DefaultSet())

	_, _, err := engine.ExecuteFromRoot(nil, nil)
	assert.True(t, errors.Is(err, tpg.ErrInvalidVertex))

	g := tpg.NewGraph()
	lonely := g.AddTeam()
	_, trace, err := engine.ExecuteFromRoot(lonely, nil)
	assert.True(t, errors.Is(err, ErrNoAction))
	assert.Equal(t, []*tpg.Vertex{lonely}, trace)

	// a walk that can only loop back is a dead end too
	loop := g.AddTeam()
	mustEdge(t, g, loop, loop, constProgram(1))
	_, _, err = engine.ExecuteFromRoot(loop, nil)
	assert.True(t, errors.Is(err, ErrNoAction))

	removed := g.AddTeam()
	require.NoError(t, g.RemoveVertex(removed))
	_, _, err = engine.ExecuteFromRoot(removed, nil)
	assert.True(t, errors.Is(err, tpg.ErrInvalidVertex))
}

func TestExecutionEngine_ActionRoot(t *testing.T) {
	g := tpg.NewGraph()
	a, _ := g.AddAction(4)

	action, trace, err := NewExecutionEngine(program.DefaultSet()).ExecuteFromRoot(a, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), action)
	assert.Len(t, trace, 1)
}

func mustEdge(t *testing.T, g *tpg.Graph, src, dst *tpg.Vertex, p *program.Program) *tpg.Edge {
	t.Helper()
	e, err := g.AddEdge(src, dst, p)
	require.NoError(t, err)
	return e
}
