// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的训练指标采集能力。

# 概述

Collector 实现 learn.Recorder，由 FLAgentManager 在每代训练、
每次分支合并与每轮最佳分支交换时调用。指标通过 promauto 注册到
默认 Registry，并由 internal/server 的 /metrics 端点暴露。

# 主要能力

  - 训练指标：每个代理完成的代数、最佳得分、图的顶点与边数，
    按 agent 分组。
  - 联邦指标：合并分支数、合并分支规模分布、交换轮数与投递数。
  - HTTP 指标：指标端点自身的请求数与耗时，状态码归类为 2xx/3xx/4xx/5xx。
  - 数据库指标：快照数据库的连接数与查询耗时。
*/
package metrics
