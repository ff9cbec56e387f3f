package metrics

import (
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

// 默认 Registry 是全局的，每个测试使用独立的 namespace
func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	c := NewCollector(nextTestNamespace(), nil)

	assert.NotNil(t, c)
	assert.NotNil(t, c.generationsTotal)
	assert.NotNil(t, c.branchesMergedTotal)
	assert.NotNil(t, c.httpRequestsTotal)
	assert.NotNil(t, c.dbQueryDuration)
}

func TestCollector_GenerationCompleted(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	c.GenerationCompleted(0, 0, 0.5)
	c.GenerationCompleted(0, 1, 0.75)
	c.GenerationCompleted(1, 0, math.Inf(-1))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.generationsTotal.WithLabelValues("0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.generationsTotal.WithLabelValues("1")))
	assert.Equal(t, 0.75, testutil.ToFloat64(c.bestScore.WithLabelValues("0")))

	// 非有限得分不写入 gauge
	assert.Equal(t, 1, testutil.CollectAndCount(c.bestScore))
}

func TestCollector_BranchMerged(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	c.BranchMerged(2, 5, 7)
	c.BranchMerged(2, 3, 4)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.branchesMergedTotal.WithLabelValues("2")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.mergedBranchSize))
}

func TestCollector_BranchesExchanged(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	c.BranchesExchanged(3)
	c.BranchesExchanged(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.exchangeRoundsTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.deliveriesTotal))
}

func TestCollector_GraphSize(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	c.GraphSize(1, 10, 20)
	c.GraphSize(1, 12, 25)

	assert.Equal(t, 12.0, testutil.ToFloat64(c.graphVertices.WithLabelValues("1")))
	assert.Equal(t, 25.0, testutil.ToFloat64(c.graphEdges.WithLabelValues("1")))
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	c.RecordHTTPRequest("GET", "/metrics", 200, 10*time.Millisecond)
	c.RecordHTTPRequest("GET", "/metrics", 204, 5*time.Millisecond)
	c.RecordHTTPRequest("GET", "/missing", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/metrics", "2xx")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.httpRequestsTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(c.httpRequestDuration))
}

func TestCollector_RecordDB(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	c.RecordDBConnections("snapshots", 4, 1)
	c.RecordDBQuery("snapshots", "insert", 3*time.Millisecond)

	assert.Equal(t, 4.0, testutil.ToFloat64(c.dbConnectionsOpen.WithLabelValues("snapshots")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dbConnectionsIdle.WithLabelValues("snapshots")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.dbQueryDuration))
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
		{100, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusCode(tt.code))
	}
}
