package learn

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/fedtpg/mutator"
	"github.com/BaSui01/fedtpg/tpg"
)

// MinNbAgents is the smallest fleet a manager runs. Smaller requests are raised to it.
const MinNbAgents = 2

// FLAgentManager 管理一组联邦学习代理:连接拓扑、最佳分支交换与同步训练.
type FLAgentManager struct {
	agents   []*FLAgent
	topology *Topology
	params   Parameters

	logger      *zap.Logger
	recorder    Recorder
	journal     ExchangeJournal
	snapshotter Snapshotter
	tracer      trace.Tracer
	rng         *mutator.RNG
}

// ManagerOption 配置 FLAgentManager.
type ManagerOption func(*FLAgentManager)

// WithLogger 设置日志记录器.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *FLAgentManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRecorder 设置进度记录器,同时传递给每个代理.
func WithRecorder(r Recorder) ManagerOption {
	return func(m *FLAgentManager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithJournal 设置交换日志.
func WithJournal(j ExchangeJournal) ManagerOption {
	return func(m *FLAgentManager) { m.journal = j }
}

// WithSnapshotter 设置合并阶段之后的图快照存储.
func WithSnapshotter(s Snapshotter) ManagerOption {
	return func(m *FLAgentManager) { m.snapshotter = s }
}

// WithTracer 设置 OpenTelemetry tracer.
func WithTracer(t trace.Tracer) ManagerOption {
	return func(m *FLAgentManager) {
		if t != nil {
			m.tracer = t
		}
	}
}

// WithRNG 设置拓扑构建使用的随机数生成器.
func WithRNG(rng *mutator.RNG) ManagerOption {
	return func(m *FLAgentManager) {
		if rng != nil {
			m.rng = rng
		}
	}
}

// NewFLAgentManager 创建 nbAgents 个代理 (至少 MinNbAgents 个),
// 每个代理由 factory 构建自己的 Learner,共享同一份参数模板.
func NewFLAgentManager(nbAgents int, factory LearnerFactory, params Parameters, opts ...ManagerOption) (*FLAgentManager, error) {
	if factory == nil {
		return nil, fmt.Errorf("new manager: nil learner factory")
	}
	if nbAgents < MinNbAgents {
		nbAgents = MinNbAgents
	}

	m := &FLAgentManager{
		params:   params,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		tracer:   otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = mutator.NewRNG(params.Seed)
	}
	m.logger = m.logger.With(zap.String("component", "fl_manager"))

	m.agents = make([]*FLAgent, nbAgents)
	for i := range m.agents {
		id := AgentID(i)
		learner, err := factory(id)
		if err != nil {
			return nil, fmt.Errorf("new manager: agent %d: %w", i, err)
		}
		m.agents[i] = NewFLAgent(id, learner, params,
			WithAgentLogger(m.logger),
			WithAgentRecorder(m.recorder),
			WithAgentTracer(m.tracer),
		)
	}
	m.topology = NewTopology(nbAgents)

	m.logger.Info("manager created", zap.Int("agents", nbAgents))
	return m, nil
}

// NbAgents 返回代理数量.
func (m *FLAgentManager) NbAgents() int { return len(m.agents) }

// Agent 返回 id 对应的代理.
func (m *FLAgentManager) Agent(id AgentID) (*FLAgent, error) {
	if id < 0 || int(id) >= len(m.agents) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAgent, id)
	}
	return m.agents[id], nil
}

// Agents 返回所有代理,按 AgentID 排序.
func (m *FLAgentManager) Agents() []*FLAgent {
	return append([]*FLAgent(nil), m.agents...)
}

// Topology 返回连接拓扑.
func (m *FLAgentManager) Topology() *Topology { return m.topology }

// ConnectAgents 注册 from -> to 连接, bothDirections 时同时注册 to -> from.
func (m *FLAgentManager) ConnectAgents(from, to AgentID, bothDirections bool) error {
	return m.topology.Connect(from, to, bothDirections)
}

// ConnectAgentsPseudoRandomly 按 MaxNbOfConnections 伪随机构建拓扑.
func (m *FLAgentManager) ConnectAgentsPseudoRandomly() error {
	if err := m.topology.ConnectPseudoRandomly(m.rng, m.params.MaxNbOfConnections); err != nil {
		return err
	}
	for _, a := range m.agents {
		m.logger.Debug("agent connected",
			zap.Int("agent", int(a.ID())),
			zap.Int("in_degree", m.topology.InDegree(a.ID())),
			zap.Int("out_degree", m.topology.OutDegree(a.ID())),
		)
	}
	return nil
}

// ExchangeBestBranches 将每个发送者的最佳根引用追加到其所有接收者的待合并队列.
// 只复制引用,结构复制发生在接收者自己的合并阶段. 返回投递数量.
func (m *FLAgentManager) ExchangeBestBranches(ctx context.Context) (int, error) {
	return m.exchange(ctx, 0)
}

func (m *FLAgentManager) exchange(ctx context.Context, generation uint64) (int, error) {
	var deliveries []Delivery
	for _, sender := range m.agents {
		best := sender.BestRoot()
		if best == nil {
			continue
		}
		closure, err := tpg.Closure(best)
		if err != nil {
			return 0, fmt.Errorf("agent %d best root: %w", sender.ID(), err)
		}
		for _, rid := range m.topology.Successors(sender.ID()) {
			if rid == sender.ID() {
				continue
			}
			m.agents[rid].ReceiveBranch(best)
			deliveries = append(deliveries, Delivery{
				Generation: generation,
				Sender:     sender.ID(),
				Receiver:   rid,
				Vertices:   len(closure.Vertices()),
				Edges:      len(closure.Edges()),
			})
		}
	}

	m.recorder.BranchesExchanged(len(deliveries))
	if m.journal != nil && len(deliveries) > 0 {
		if err := m.journal.Record(ctx, deliveries); err != nil {
			// 日志只用于观察,不影响训练
			m.logger.Warn("exchange journal failed", zap.Error(err))
		}
	}
	return len(deliveries), nil
}

// aggregate 执行一次聚合: 交换 -> 屏障 -> 提取 -> 屏障 -> 并行合并 -> 屏障 -> 快照.
func (m *FLAgentManager) aggregate(ctx context.Context, generation uint64) error {
	ctx, span := m.tracer.Start(ctx, "fedtpg.aggregate",
		trace.WithAttributes(attribute.Int64("generation", int64(generation))))
	defer span.End()

	delivered, err := m.exchange(ctx, generation)
	if err != nil {
		return m.fail(span, err)
	}

	// 所有图此时都处于静止状态
	branches := make([][]*mutator.Branch, len(m.agents))
	for i, a := range m.agents {
		branches[i], err = a.ExtractPendingBranches()
		if err != nil {
			return m.fail(span, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if m.params.MaxParallelAgents > 0 {
		g.SetLimit(m.params.MaxParallelAgents)
	}
	for i, a := range m.agents {
		i, a := i, a
		g.Go(func() error {
			return a.MergeBranches(gctx, branches[i])
		})
	}
	if err := g.Wait(); err != nil {
		return m.fail(span, err)
	}

	if m.snapshotter != nil {
		for _, a := range m.agents {
			if err := m.snapshotter.Save(ctx, generation, a.ID(), a.Graph()); err != nil {
				m.logger.Warn("snapshot failed", zap.Int("agent", int(a.ID())), zap.Error(err))
			}
		}
	}

	m.logger.Info("aggregation completed",
		zap.Uint64("generation", generation),
		zap.Int("deliveries", delivered),
	)
	return nil
}

func (m *FLAgentManager) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// evolve 并行地让每个代理训练一代,每个代理只写自己的图.
func (m *FLAgentManager) evolve(ctx context.Context, generation uint64) error {
	g, gctx := errgroup.WithContext(ctx)
	if m.params.MaxParallelAgents > 0 {
		g.SetLimit(m.params.MaxParallelAgents)
	}
	for _, a := range m.agents {
		a := a
		g.Go(func() error {
			return a.TrainOneGeneration(gctx, generation)
		})
	}
	return g.Wait()
}

// TrainAndExchangeBestBranches 以共享的代数计数器同步训练所有代理,
// 在每个聚合边界先交换再合并. stop 与 ctx 每代检查一次. 返回完成的代数.
func (m *FLAgentManager) TrainAndExchangeBestBranches(ctx context.Context, stop *atomic.Bool) (uint64, error) {
	start := time.Now()
	var generation, aggregation uint64
	for !stopped(ctx, stop) && generation < m.params.NbGenerations {
		if m.params.isAggregationBoundary(generation, aggregation) {
			if err := m.aggregate(ctx, generation); err != nil {
				return generation, fmt.Errorf("aggregation at generation %d: %w", generation, err)
			}
			aggregation++
		}
		if err := m.evolve(ctx, generation); err != nil {
			return generation, fmt.Errorf("generation %d: %w", generation, err)
		}
		generation++
	}

	fields := []zap.Field{
		zap.Uint64("generations", generation),
		zap.Uint64("aggregations", aggregation),
		zap.Duration("elapsed", time.Since(start)),
	}
	if generation < m.params.NbGenerations {
		m.logger.Info("training halted", fields...)
	} else {
		m.logger.Info("training completed", fields...)
	}
	return generation, nil
}
