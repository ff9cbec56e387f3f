package metrics

import (
	"math"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/fedtpg/learn"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器，实现 learn.Recorder
type Collector struct {
	// 训练指标
	generationsTotal *prometheus.CounterVec
	bestScore        *prometheus.GaugeVec
	graphVertices    *prometheus.GaugeVec
	graphEdges       *prometheus.GaugeVec

	// 分支交换与合并指标
	branchesMergedTotal *prometheus.CounterVec
	mergedBranchSize    *prometheus.HistogramVec
	exchangeRoundsTotal prometheus.Counter
	deliveriesTotal     prometheus.Counter

	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 数据库指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec
	dbQueryDuration   *prometheus.HistogramVec

	logger *zap.Logger
}

var _ learn.Recorder = (*Collector)(nil)

// NewCollector 创建指标收集器，指标注册到默认 Registry
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Total number of completed generations",
		},
		[]string{"agent"},
	)

	c.bestScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_score",
			Help:      "Score of the best root of the last generation",
		},
		[]string{"agent"},
	)

	c.graphVertices = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_vertices",
			Help:      "Number of vertices in the agent graph",
		},
		[]string{"agent"},
	)

	c.graphEdges = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Number of edges in the agent graph",
		},
		[]string{"agent"},
	)

	c.branchesMergedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "branches_merged_total",
			Help:      "Total number of branches merged into the agent graph",
		},
		[]string{"agent"},
	)

	c.mergedBranchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "merged_branch_size",
			Help:      "Size of merged branches",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"kind"},
	)

	c.exchangeRoundsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_rounds_total",
			Help:      "Total number of best-branch exchange rounds",
		},
	)

	c.deliveriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "branch_deliveries_total",
			Help:      "Total number of best roots handed to receivers",
		},
	)

	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.dbConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	c.dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"database", "operation"},
	)

	return c
}

// =============================================================================
// 🧬 训练指标 (learn.Recorder)
// =============================================================================

func agentLabel(agent learn.AgentID) string {
	return strconv.Itoa(int(agent))
}

// GenerationCompleted 记录一代训练完成
func (c *Collector) GenerationCompleted(agent learn.AgentID, generation uint64, bestScore float64) {
	label := agentLabel(agent)
	c.generationsTotal.WithLabelValues(label).Inc()
	if !math.IsInf(bestScore, 0) && !math.IsNaN(bestScore) {
		c.bestScore.WithLabelValues(label).Set(bestScore)
	}
	c.logger.Debug("generation recorded",
		zap.Int("agent", int(agent)),
		zap.Uint64("generation", generation),
		zap.Float64("best_score", bestScore),
	)
}

// BranchMerged 记录一次分支合并
func (c *Collector) BranchMerged(agent learn.AgentID, vertices, edges int) {
	c.branchesMergedTotal.WithLabelValues(agentLabel(agent)).Inc()
	c.mergedBranchSize.WithLabelValues("vertices").Observe(float64(vertices))
	c.mergedBranchSize.WithLabelValues("edges").Observe(float64(edges))
}

// BranchesExchanged 记录一轮最佳分支交换
func (c *Collector) BranchesExchanged(deliveries int) {
	c.exchangeRoundsTotal.Inc()
	c.deliveriesTotal.Add(float64(deliveries))
}

// GraphSize 记录代理图的规模
func (c *Collector) GraphSize(agent learn.AgentID, vertices, edges int) {
	label := agentLabel(agent)
	c.graphVertices.WithLabelValues(label).Set(float64(vertices))
	c.graphEdges.WithLabelValues(label).Set(float64(edges))
}

// =============================================================================
// 🌐 HTTP 与数据库指标
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// RecordDBQuery 记录数据库查询
func (c *Collector) RecordDBQuery(database, operation string, duration time.Duration) {
	c.dbQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// statusCode 将状态码归类为 2xx/3xx/4xx/5xx
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
