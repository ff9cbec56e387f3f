// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 fedtpg 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 图断言: AssertGraphsEquivalent 比较两个图的结构与程序
  - 异步断言: AssertEventuallyTrue / WaitFor

# 子包

  - testutil/fixtures: 预置的小型策略图与常量程序

# 使用示例

	ctx := testutil.TestContext(t)
	g, root := fixtures.StarGraph(t, 3)
	testutil.AssertGraphsEquivalent(t, g, imported)
*/
package testutil
