// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供训练进程的运维 HTTP 端点。

# 概述

Manager 封装 net/http.Server 的非阻塞启动与优雅关闭。NewHandler
构建 /metrics (Prometheus) 与 /healthz 两个端点，并记录端点自身的
请求指标。

# 核心类型

  - Manager：服务器生命周期管理。
  - Health：按名称注册的健康检查集合，例如快照数据库与 Redis 的连通性。
  - HTTPRecorder：请求指标记录接口，由 metrics.Collector 实现。
*/
package server
