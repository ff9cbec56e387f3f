package learn

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/fedtpg/tpg"
)

func TestFLAgent_TrainMergesAtBoundary(t *testing.T) {
	sender := newFakeLearner()
	receiver := newFakeLearner()
	rec := &eventRecorder{}

	params := testParameters()
	params.NbGenerations = 3
	params.NbGenerationPerAggregation = 2
	agent := NewFLAgent(1, receiver, params, WithAgentRecorder(rec), WithAgentLogger(zaptest.NewLogger(t)))

	n, err := agent.Train(context.Background(), &atomic.Bool{}, sender.BestRoot())
	require.NoError(t, err)

	assert.Equal(t, uint64(3), n)
	assert.Equal(t, []string{"gen:1:0", "gen:1:1", "merge:1", "gen:1:2"}, rec.log())
	assert.Empty(t, agent.PendingBranches())
	assert.Equal(t, 3+1, receiver.Graph().NbVertices())
	assert.Equal(t, 2+2, receiver.Graph().NbEdges())
	assert.Equal(t, 3, sender.Graph().NbVertices())
}

func TestFLAgent_TrainMergesEveryPeriod(t *testing.T) {
	sender := newFakeLearner()
	receiver := newFakeLearner()
	rec := &eventRecorder{}

	params := testParameters()
	params.NbGenerations = 5
	params.NbGenerationPerAggregation = 2
	agent := NewFLAgent(0, receiver, params, WithAgentRecorder(rec))

	// a new branch arrives during every generation
	receiver.hook = func(uint64) { agent.ReceiveBranch(sender.BestRoot()) }

	n, err := agent.Train(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)

	merges := 0
	for _, e := range rec.log() {
		if e == "merge:0" {
			merges++
		}
	}
	// boundaries before generations 2 and 4, two branches each
	assert.Equal(t, 4, merges)
	assert.Len(t, agent.PendingBranches(), 1)
}

func TestFLAgent_TrainWithoutAggregation(t *testing.T) {
	sender := newFakeLearner()
	receiver := newFakeLearner()

	params := testParameters()
	params.NbGenerations = 4
	params.NbGenerationPerAggregation = 0
	agent := NewFLAgent(0, receiver, params)

	n, err := agent.Train(context.Background(), nil, sender.BestRoot())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n)
	assert.Len(t, agent.PendingBranches(), 1)
	assert.Equal(t, 3, receiver.Graph().NbVertices())
}

func TestFLAgent_TrainStops(t *testing.T) {
	learner := newFakeLearner()
	params := testParameters()
	params.NbGenerations = 10

	var stop atomic.Bool
	stop.Store(true)
	agent := NewFLAgent(0, learner, params)
	n, err := agent.Train(context.Background(), &stop, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
	assert.Empty(t, learner.trained())

	// raised during generation 1: that generation still completes
	stop.Store(false)
	learner.hook = func(g uint64) {
		if g == 1 {
			stop.Store(true)
		}
	}
	n, err = agent.Train(context.Background(), &stop, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err = agent.Train(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
}

func TestFLAgent_TrainStaleBranch(t *testing.T) {
	sender := newFakeLearner()
	receiver := newFakeLearner()
	params := testParameters()
	agent := NewFLAgent(0, receiver, params)

	stale := sender.Graph().AddTeam()
	require.NoError(t, sender.Graph().RemoveVertex(stale))

	n, err := agent.Train(context.Background(), nil, stale)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tpg.ErrInvalidVertex))
	assert.Equal(t, uint64(2), n)
	assert.Equal(t, 3, receiver.Graph().NbVertices())
}

func TestFLAgent_PendingQueue(t *testing.T) {
	agent := NewFLAgent(0, newFakeLearner(), testParameters())
	other := newFakeLearner()

	agent.ReceiveBranch(nil)
	assert.Empty(t, agent.PendingBranches())

	agent.ReceiveBranch(other.BestRoot())
	agent.ReceiveBranch(other.BestRoot())
	assert.Len(t, agent.PendingBranches(), 2)

	agent.ClearPendingBranches()
	assert.Empty(t, agent.PendingBranches())

	agent.ReceiveBranch(other.BestRoot())
	require.NoError(t, agent.MergePendingBranches(context.Background()))
	assert.Empty(t, agent.PendingBranches())
	assert.Equal(t, 4, agent.Graph().NbVertices())
}
