package learn

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/fedtpg/mutator"
	"github.com/BaSui01/fedtpg/tpg"
)

const instrumentationName = "github.com/BaSui01/fedtpg/learn"

// FLAgent is a learner that accepts branches from other agents and absorbs
// them at aggregation boundaries.
type FLAgent struct {
	id       AgentID
	learner  Learner
	params   Parameters
	logger   *zap.Logger
	recorder Recorder
	tracer   trace.Tracer

	mu      sync.Mutex
	pending []*tpg.Vertex
}

// AgentOption configures an FLAgent.
type AgentOption func(*FLAgent)

// WithAgentLogger sets the logger of the agent.
func WithAgentLogger(logger *zap.Logger) AgentOption {
	return func(a *FLAgent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAgentRecorder sets the progress recorder of the agent.
func WithAgentRecorder(r Recorder) AgentOption {
	return func(a *FLAgent) {
		if r != nil {
			a.recorder = r
		}
	}
}

// WithAgentTracer sets the tracer used for merge spans.
func WithAgentTracer(t trace.Tracer) AgentOption {
	return func(a *FLAgent) {
		if t != nil {
			a.tracer = t
		}
	}
}

// NewFLAgent wraps learner.
func NewFLAgent(id AgentID, learner Learner, params Parameters, opts ...AgentOption) *FLAgent {
	a := &FLAgent{
		id:       id,
		learner:  learner,
		params:   params,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		tracer:   otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(zap.String("component", "fl_agent"), zap.Int("agent", int(id)))
	return a
}

// ID returns the handle of the agent within its manager.
func (a *FLAgent) ID() AgentID { return a.id }

// Learner returns the wrapped learner.
func (a *FLAgent) Learner() Learner { return a.learner }

// Graph returns the graph owned by the agent.
func (a *FLAgent) Graph() *tpg.Graph { return a.learner.Graph() }

// BestRoot returns the current best root of the learner.
func (a *FLAgent) BestRoot() *tpg.Vertex { return a.learner.BestRoot() }

// Params returns the parameters of the agent.
func (a *FLAgent) Params() Parameters { return a.params }

// ReceiveBranch queues a reference to a root owned by another agent. Nothing
// is copied until the next merge. A nil root is ignored.
func (a *FLAgent) ReceiveBranch(root *tpg.Vertex) {
	if root == nil {
		return
	}
	a.mu.Lock()
	a.pending = append(a.pending, root)
	a.mu.Unlock()
}

// PendingBranches returns a copy of the queue.
func (a *FLAgent) PendingBranches() []*tpg.Vertex {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*tpg.Vertex(nil), a.pending...)
}

// ClearPendingBranches empties the queue.
func (a *FLAgent) ClearPendingBranches() {
	a.mu.Lock()
	a.pending = nil
	a.mu.Unlock()
}

// ExtractPendingBranches copies every queued branch out of its source graph
// and empties the queue. The source graphs must not be mutated meanwhile.
func (a *FLAgent) ExtractPendingBranches() ([]*mutator.Branch, error) {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	branches := make([]*mutator.Branch, 0, len(pending))
	for _, root := range pending {
		b, err := mutator.ExtractBranch(root)
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", a.id, err)
		}
		branches = append(branches, b)
	}
	return branches, nil
}

// MergeBranches merges extracted branches into the agent's own graph.
func (a *FLAgent) MergeBranches(ctx context.Context, branches []*mutator.Branch) error {
	if len(branches) == 0 {
		return nil
	}
	_, span := a.tracer.Start(ctx, "fedtpg.merge",
		trace.WithAttributes(
			attribute.Int("agent", int(a.id)),
			attribute.Int("branches", len(branches)),
		),
	)
	defer span.End()

	g := a.Graph()
	for _, b := range branches {
		if _, err := mutator.MergeBranch(b, g); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("agent %d: %w", a.id, err)
		}
		a.recorder.BranchMerged(a.id, b.NbVertices(), b.NbEdges())
	}
	a.recorder.GraphSize(a.id, g.NbVertices(), g.NbEdges())
	a.logger.Debug("branches merged",
		zap.Int("branches", len(branches)),
		zap.Int("vertices", g.NbVertices()),
		zap.Int("edges", g.NbEdges()),
	)
	return nil
}

// MergePendingBranches extracts and merges every queued branch, then empties the queue.
func (a *FLAgent) MergePendingBranches(ctx context.Context) error {
	branches, err := a.ExtractPendingBranches()
	if err != nil {
		return err
	}
	return a.MergeBranches(ctx, branches)
}

// TrainOneGeneration runs one generation of the learner and reports it.
func (a *FLAgent) TrainOneGeneration(ctx context.Context, generation uint64) error {
	if err := a.learner.TrainOneGeneration(ctx, generation); err != nil {
		return fmt.Errorf("agent %d: %w", a.id, err)
	}
	a.recorder.GenerationCompleted(a.id, generation, a.bestScore())
	g := a.Graph()
	a.recorder.GraphSize(a.id, g.NbVertices(), g.NbEdges())
	return nil
}

func (a *FLAgent) bestScore() float64 {
	if s, ok := a.learner.(Scorer); ok {
		return s.BestScore()
	}
	return 0
}

// Train runs up to NbGenerations generations. branch, when not nil, is
// queued before the first generation. Pending branches are merged at each
// aggregation boundary, before the generation starts. stop and ctx are
// checked once per generation. It returns the number of completed generations.
func (a *FLAgent) Train(ctx context.Context, stop *atomic.Bool, branch *tpg.Vertex) (uint64, error) {
	a.ReceiveBranch(branch)

	var generation, aggregation uint64
	for !stopped(ctx, stop) && generation < a.params.NbGenerations {
		if a.params.isAggregationBoundary(generation, aggregation) {
			if err := a.MergePendingBranches(ctx); err != nil {
				return generation, err
			}
			aggregation++
		}
		if err := a.TrainOneGeneration(ctx, generation); err != nil {
			return generation, err
		}
		generation++
	}

	if generation < a.params.NbGenerations {
		a.logger.Info("training halted", zap.Uint64("generation", generation))
	} else {
		a.logger.Info("training completed", zap.Uint64("generations", generation))
	}
	return generation, nil
}

func stopped(ctx context.Context, stop *atomic.Bool) bool {
	return (stop != nil && stop.Load()) || ctx.Err() != nil
}
