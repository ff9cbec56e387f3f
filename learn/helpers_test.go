package learn

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/fedtpg/program"
	"github.com/BaSui01/fedtpg/tpg"
)

// constProgram bids 2*c whatever the observation.
func constProgram(c float64) *program.Program {
	p := program.New()
	p.Constants = []float64{c}
	l := p.AddLine()
	l.Instruction = 0
	l.Operands = [2]program.Operand{
		{Source: program.SourceConstant, Index: 0},
		{Source: program.SourceConstant, Index: 0},
	}
	return p
}

// fakeLearner owns root -> {a0, a1}. It does not mutate its graph unless hook does.
type fakeLearner struct {
	graph *tpg.Graph
	root  *tpg.Vertex
	hook  func(generation uint64)

	mu          sync.Mutex
	generations []uint64
}

func newFakeLearner() *fakeLearner {
	g := tpg.NewGraph()
	root := g.AddTeam()
	a0, _ := g.AddAction(0)
	a1, _ := g.AddAction(1)
	_, _ = g.AddEdge(root, a0, constProgram(1))
	_, _ = g.AddEdge(root, a1, constProgram(2))
	return &fakeLearner{graph: g, root: root}
}

func (l *fakeLearner) Graph() *tpg.Graph { return l.graph }

func (l *fakeLearner) BestRoot() *tpg.Vertex { return l.root }

func (l *fakeLearner) TrainOneGeneration(_ context.Context, generation uint64) error {
	l.mu.Lock()
	l.generations = append(l.generations, generation)
	l.mu.Unlock()
	if l.hook != nil {
		l.hook(generation)
	}
	return nil
}

func (l *fakeLearner) trained() []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]uint64(nil), l.generations...)
}

// eventRecorder keeps an ordered log of recorder calls.
type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *eventRecorder) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *eventRecorder) GenerationCompleted(agent AgentID, generation uint64, _ float64) {
	r.add(fmt.Sprintf("gen:%d:%d", agent, generation))
}

func (r *eventRecorder) BranchMerged(agent AgentID, _, _ int) {
	r.add(fmt.Sprintf("merge:%d", agent))
}

func (r *eventRecorder) BranchesExchanged(deliveries int) {
	r.add(fmt.Sprintf("exchange:%d", deliveries))
}

func (r *eventRecorder) GraphSize(AgentID, int, int) {}

func (r *eventRecorder) log() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type memoryJournal struct {
	mu         sync.Mutex
	deliveries []Delivery
}

func (j *memoryJournal) Record(_ context.Context, deliveries []Delivery) error {
	j.mu.Lock()
	j.deliveries = append(j.deliveries, deliveries...)
	j.mu.Unlock()
	return nil
}

type snapshotCall struct {
	generation uint64
	agent      AgentID
	vertices   int
}

type memorySnapshotter struct {
	mu    sync.Mutex
	calls []snapshotCall
}

func (s *memorySnapshotter) Save(_ context.Context, generation uint64, agent AgentID, g *tpg.Graph) error {
	s.mu.Lock()
	s.calls = append(s.calls, snapshotCall{generation: generation, agent: agent, vertices: g.NbVertices()})
	s.mu.Unlock()
	return nil
}

// countingEnv rewards action 0. An episode lasts three actions.
type countingEnv struct {
	steps int
	score float64
}

func (e *countingEnv) NbActions() int { return 2 }
func (e *countingEnv) DataSize() int  { return 2 }
func (e *countingEnv) Reset(int64)    { e.steps, e.score = 0, 0 }
func (e *countingEnv) DataSources() []float64 {
	return []float64{float64(e.steps), e.score}
}
func (e *countingEnv) DoAction(id uint64) error {
	if id > 1 {
		return fmt.Errorf("bad action %d", id)
	}
	if id == 0 {
		e.score++
	}
	e.steps++
	return nil
}
func (e *countingEnv) Score() float64   { return e.score }
func (e *countingEnv) IsTerminal() bool { return e.steps >= 3 }

func testParameters() Parameters {
	p := DefaultParameters()
	p.NbGenerations = 3
	p.NbGenerationPerAggregation = 2
	p.NbRoots = 8
	p.NbIterationsPerPolicyEvaluation = 2
	p.MaxNbActionsPerEval = 5
	p.Seed = 7
	return p
}
