// =============================================================================
// 📦 测试数据工厂 - 策略图
// =============================================================================
// 提供预定义的小型图, 用于测试
// =============================================================================
package fixtures

import (
	"testing"

	"github.com/BaSui01/fedtpg/program"
	"github.com/BaSui01/fedtpg/tpg"
)

// ConstProgram 返回出价恒为 2*c 的程序
func ConstProgram(c float64) *program.Program {
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

// StarGraph 返回 root -> action(0..n-1), 所有边共享同一个程序
func StarGraph(t testing.TB, nbActions int) (*tpg.Graph, *tpg.Vertex) {
	t.Helper()
	g := tpg.NewGraph()
	root := g.AddTeam()
	shared := ConstProgram(1)
	for i := 0; i < nbActions; i++ {
		a, err := g.AddAction(uint64(i))
		if err != nil {
			t.Fatalf("add action %d: %v", i, err)
		}
		if _, err := g.AddEdge(root, a, shared); err != nil {
			t.Fatalf("add edge to action %d: %v", i, err)
		}
	}
	return g, root
}

// LayeredGraph 返回 root -> {inner, action 0}, inner -> {action 0, action 1}.
// 每条边拥有独立程序, root -> inner 出价最高.
func LayeredGraph(t testing.TB) (*tpg.Graph, *tpg.Vertex) {
	t.Helper()
	g := tpg.NewGraph()
	root := g.AddTeam()
	inner := g.AddTeam()
	a0, err := g.AddAction(0)
	if err != nil {
		t.Fatalf("add action: %v", err)
	}
	a1, err := g.AddAction(1)
	if err != nil {
		t.Fatalf("add action: %v", err)
	}

	edges := []struct {
		src, dst *tpg.Vertex
		bid      float64
	}{
		{root, inner, 3},
		{root, a0, 1},
		{inner, a0, 1},
		{inner, a1, 2},
	}
	for _, e := range edges {
		if _, err := g.AddEdge(e.src, e.dst, ConstProgram(e.bid)); err != nil {
			t.Fatalf("add edge: %v", err)
		}
	}
	return g, root
}
