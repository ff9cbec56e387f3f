// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试辅助函数和断言
//
// 使用方法:
//
//	testutil.AssertGraphsEquivalent(t, expected, actual)
//	testutil.AssertEventuallyTrue(t, func() bool { return condition }, 5*time.Second)
// =============================================================================
package testutil

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/BaSui01/fedtpg/tpg"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestContextWithTimeout 返回带自定义超时的测试上下文
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// 🔍 图断言
// =============================================================================

// AssertGraphsEquivalent 断言两个图有相同的顶点种类和动作集合,
// 且按插入顺序的每条边连接相同位置的顶点并携带相等的程序.
func AssertGraphsEquivalent(t *testing.T, expected, actual *tpg.Graph) {
	t.Helper()

	if expected.NbVertices() != actual.NbVertices() || expected.NbEdges() != actual.NbEdges() {
		t.Errorf("graph size mismatch: expected %d vertices/%d edges, got %d/%d",
			expected.NbVertices(), expected.NbEdges(), actual.NbVertices(), actual.NbEdges())
		return
	}

	if e, a := actionIDs(expected), actionIDs(actual); !equalIDs(e, a) {
		t.Errorf("action mismatch: expected %v, got %v", e, a)
	}

	ev, av := expected.Vertices(), actual.Vertices()
	for i := range ev {
		if ev[i].Kind() != av[i].Kind() {
			t.Errorf("vertex[%d] kind mismatch: expected %v, got %v", i, ev[i].Kind(), av[i].Kind())
		}
	}

	ee, ae := expected.Edges(), actual.Edges()
	for i := range ee {
		if expected.IndexOf(ee[i].Source()) != actual.IndexOf(ae[i].Source()) ||
			expected.IndexOf(ee[i].Destination()) != actual.IndexOf(ae[i].Destination()) {
			t.Errorf("edge[%d] endpoints mismatch", i)
		}
		if !ee[i].Program().Equal(ae[i].Program()) {
			t.Errorf("edge[%d] program mismatch", i)
		}
	}
}

func actionIDs(g *tpg.Graph) []uint64 {
	var ids []uint64
	for _, a := range g.Actions() {
		ids = append(ids, a.ActionID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func equalIDs(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// =============================================================================
// ⏳ 异步辅助
// =============================================================================

// AssertEventuallyTrue 断言条件最终为真
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	if !WaitFor(condition, timeout) {
		t.Errorf("condition did not become true within %v", timeout)
	}
}

// WaitFor 等待条件满足
func WaitFor(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return condition()
}
