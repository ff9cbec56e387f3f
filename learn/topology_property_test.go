package learn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/fedtpg/mutator"
)

func TestTopology_ConnectPseudoRandomlyInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 20).Draw(rt, "agents")
		maxConn := rapid.IntRange(0, 6).Draw(rt, "max_connections")
		seed := rapid.Int64().Draw(rt, "seed")

		topo := NewTopology(n)
		if err := topo.ConnectPseudoRandomly(mutator.NewRNG(seed), maxConn); err != nil {
			rt.Fatalf("connect: %v", err)
		}

		for i := 0; i < n; i++ {
			id := AgentID(i)
			if topo.InDegree(id) < 1 {
				rt.Fatalf("agent %d has no sender", i)
			}
			if topo.HasConnection(id, id) {
				rt.Fatalf("agent %d sends to itself", i)
			}
			if out := topo.OutDegree(id); out > maxConn+topo.GuaranteedSends(id) {
				rt.Fatalf("agent %d: out degree %d > %d + %d", i, out, maxConn, topo.GuaranteedSends(id))
			}
		}
	})
}

func TestTopology_ConnectPseudoRandomlyDeterministic(t *testing.T) {
	a := NewTopology(8)
	b := NewTopology(8)
	require.NoError(t, a.ConnectPseudoRandomly(mutator.NewRNG(42), 3))
	require.NoError(t, b.ConnectPseudoRandomly(mutator.NewRNG(42), 3))
	for i := 0; i < 8; i++ {
		assert.Equal(t, a.Successors(AgentID(i)), b.Successors(AgentID(i)))
	}
}

func TestTopology_Connect(t *testing.T) {
	topo := NewTopology(3)
	assert.Equal(t, 3, topo.NbAgents())

	require.NoError(t, topo.Connect(0, 1, false))
	require.NoError(t, topo.Connect(0, 1, false))
	require.NoError(t, topo.Connect(2, 0, true))

	assert.Equal(t, []AgentID{1, 2}, topo.Successors(0))
	assert.Equal(t, []AgentID{0}, topo.Successors(2))
	assert.Empty(t, topo.Successors(1))
	assert.True(t, topo.HasConnection(0, 1))
	assert.False(t, topo.HasConnection(1, 0))

	assert.Equal(t, 2, topo.OutDegree(0))
	assert.Equal(t, 1, topo.InDegree(1))
	assert.Equal(t, 0, topo.GuaranteedSends(0))

	tests := []struct {
		name     string
		from, to AgentID
	}{
		{"negative source", -1, 0},
		{"source out of range", 3, 0},
		{"destination out of range", 0, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := topo.Connect(tt.from, tt.to, false)
			assert.True(t, errors.Is(err, ErrUnknownAgent))
		})
	}

	assert.Nil(t, topo.Successors(9))
	assert.Equal(t, 0, topo.OutDegree(9))
	assert.False(t, topo.HasConnection(9, 0))
}

func TestTopology_ConnectPseudoRandomlyTooSmall(t *testing.T) {
	for _, n := range []int{0, 1} {
		err := NewTopology(n).ConnectPseudoRandomly(mutator.NewRNG(1), 2)
		assert.Error(t, err)
	}
}
