package learn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/fedtpg/mutator"
	"github.com/BaSui01/fedtpg/program"
	"github.com/BaSui01/fedtpg/tpg"
)

func fakeFactory(learners map[AgentID]*fakeLearner) LearnerFactory {
	return func(id AgentID) (Learner, error) {
		l := newFakeLearner()
		if learners != nil {
			learners[id] = l
		}
		return l, nil
	}
}

func TestNewFLAgentManager_MinimumAgents(t *testing.T) {
	for _, n := range []int{-1, 0, 1} {
		m, err := NewFLAgentManager(n, fakeFactory(nil), testParameters())
		require.NoError(t, err)
		assert.Equal(t, MinNbAgents, m.NbAgents())
	}

	m, err := NewFLAgentManager(5, fakeFactory(nil), testParameters())
	require.NoError(t, err)
	assert.Equal(t, 5, m.NbAgents())

	seen := make(map[*tpg.Graph]bool)
	for i, a := range m.Agents() {
		assert.Equal(t, AgentID(i), a.ID())
		assert.False(t, seen[a.Graph()], "agents must not share graphs")
		seen[a.Graph()] = true
	}

	_, err = m.Agent(5)
	assert.True(t, errors.Is(err, ErrUnknownAgent))
}

func TestNewFLAgentManager_FactoryError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewFLAgentManager(3, func(id AgentID) (Learner, error) {
		if id == 2 {
			return nil, boom
		}
		return newFakeLearner(), nil
	}, testParameters())
	assert.True(t, errors.Is(err, boom))

	_, err = NewFLAgentManager(3, nil, testParameters())
	assert.Error(t, err)
}

func TestFLAgentManager_ExchangeBestBranches(t *testing.T) {
	learners := make(map[AgentID]*fakeLearner)
	journal := &memoryJournal{}
	rec := &eventRecorder{}
	m, err := NewFLAgentManager(3, fakeFactory(learners), testParameters(),
		WithJournal(journal), WithRecorder(rec))
	require.NoError(t, err)

	require.NoError(t, m.ConnectAgents(0, 1, true))
	require.NoError(t, m.ConnectAgents(2, 2, false))
	assert.True(t, errors.Is(m.ConnectAgents(0, 9, false), ErrUnknownAgent))

	n, err := m.ExchangeBestBranches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	a0, _ := m.Agent(0)
	a1, _ := m.Agent(1)
	a2, _ := m.Agent(2)
	assert.Equal(t, []*tpg.Vertex{learners[1].root}, a0.PendingBranches())
	assert.Equal(t, []*tpg.Vertex{learners[0].root}, a1.PendingBranches())
	assert.Empty(t, a2.PendingBranches(), "self connections are skipped")

	// exchange copies references only
	for _, l := range learners {
		assert.Equal(t, 3, l.Graph().NbVertices())
	}

	require.Len(t, journal.deliveries, 2)
	assert.Equal(t, Delivery{Sender: 0, Receiver: 1, Vertices: 3, Edges: 2}, journal.deliveries[0])
	assert.Equal(t, []string{"exchange:2"}, rec.log())
}

func TestFLAgentManager_TrainAndExchange(t *testing.T) {
	learners := make(map[AgentID]*fakeLearner)
	rec := &eventRecorder{}
	snapshots := &memorySnapshotter{}

	params := testParameters()
	params.NbGenerations = 4
	params.NbGenerationPerAggregation = 2
	params.MaxParallelAgents = 2

	m, err := NewFLAgentManager(3, fakeFactory(learners), params,
		WithRecorder(rec),
		WithSnapshotter(snapshots),
		WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)
	require.NoError(t, m.ConnectAgents(0, 1, true))
	require.NoError(t, m.ConnectAgents(1, 2, false))

	n, err := m.TrainAndExchangeBestBranches(context.Background(), &atomic.Bool{})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n)

	for id, l := range learners {
		assert.Equal(t, []uint64{0, 1, 2, 3}, sortedGenerations(l.trained()), "agent %d", id)
	}

	// agent 0 receives from 1, agent 1 from 0, agent 2 from 1
	for id := range learners {
		assert.Equal(t, 4, learners[id].Graph().NbVertices(), "agent %d", id)
		assert.Equal(t, 4, learners[id].Graph().NbEdges(), "agent %d", id)
	}

	require.Len(t, snapshots.calls, 3)
	for _, c := range snapshots.calls {
		assert.Equal(t, uint64(2), c.generation)
		assert.Equal(t, 4, c.vertices)
	}

	// the exchange happens once, after every agent finished generation 1
	log := rec.log()
	exchangeAt := -1
	for i, e := range log {
		if e == "exchange:3" {
			exchangeAt = i
		}
	}
	require.GreaterOrEqual(t, exchangeAt, 0)
	require.Len(t, log[:exchangeAt], 6)
	for _, e := range log[:exchangeAt] {
		assert.True(t, strings.HasPrefix(e, "gen:"), e)
		assert.False(t, strings.HasSuffix(e, ":2") || strings.HasSuffix(e, ":3"), e)
	}
	for _, e := range log[exchangeAt+1 : exchangeAt+4] {
		assert.True(t, strings.HasPrefix(e, "merge:"), e)
	}
}

func sortedGenerations(gens []uint64) []uint64 {
	out := append([]uint64(nil), gens...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func TestFLAgentManager_TrainStopsAndFails(t *testing.T) {
	params := testParameters()
	params.NbGenerations = 10

	m, err := NewFLAgentManager(2, fakeFactory(nil), params)
	require.NoError(t, err)

	var stop atomic.Bool
	stop.Store(true)
	n, err := m.TrainAndExchangeBestBranches(context.Background(), &stop)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)

	learners := make(map[AgentID]*fakeLearner)
	m, err = NewFLAgentManager(2, fakeFactory(learners), params)
	require.NoError(t, err)
	require.NoError(t, m.ConnectAgents(0, 1, false))

	// the best root of agent 0 disappears before the first boundary
	require.NoError(t, learners[0].Graph().RemoveVertex(learners[0].root))

	n, err = m.TrainAndExchangeBestBranches(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tpg.ErrInvalidVertex))
	assert.Equal(t, uint64(2), n)
}

func TestFLAgentManager_WithLearningAgents(t *testing.T) {
	params := testParameters()
	params.NbGenerations = 4
	params.NbGenerationPerAggregation = 2
	params.MaxNbOfConnections = 2

	factory := func(id AgentID) (Learner, error) {
		return NewLearningAgent(&countingEnv{}, program.DefaultSet(), params, mutator.NewRNG(int64(id)+1), nil)
	}
	m, err := NewFLAgentManager(3, factory, params, WithRNG(mutator.NewRNG(11)))
	require.NoError(t, err)
	require.NoError(t, m.ConnectAgentsPseudoRandomly())

	n, err := m.TrainAndExchangeBestBranches(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n)

	for _, a := range m.Agents() {
		best := a.BestRoot()
		require.NotNil(t, best)
		assert.Same(t, a.Graph(), best.Graph())
		assert.GreaterOrEqual(t, m.Topology().InDegree(a.ID()), 1)
	}
}

func TestFLAgentManager_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	// 3 generations with period 2: a single aggregation before generation 2
	m, err := NewFLAgentManager(2, fakeFactory(nil), testParameters(), WithTracer(tp.Tracer("test")))
	require.NoError(t, err)
	require.NoError(t, m.ConnectAgents(0, 1, true))

	_, err = m.TrainAndExchangeBestBranches(context.Background(), nil)
	require.NoError(t, err)

	counts := make(map[string]int)
	var aggregate sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		counts[s.Name()]++
		if s.Name() == "fedtpg.aggregate" {
			aggregate = s
		}
	}
	assert.Equal(t, 1, counts["fedtpg.aggregate"])
	assert.Equal(t, 2, counts["fedtpg.merge"])

	require.NotNil(t, aggregate)
	for _, s := range sr.Ended() {
		if s.Name() == "fedtpg.merge" {
			assert.Equal(t, aggregate.SpanContext().SpanID(), s.Parent().SpanID())
		}
	}
}
