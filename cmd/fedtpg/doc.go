// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 fedtpg 命令行入口。

# 概述

cmd/fedtpg 在 stick game 环境上运行联邦 TPG 训练: 创建一组学习代理,
伪随机连接它们, 并在每个聚合边界交换并合并各代理的最佳分支。

# 子命令

  - train    运行训练, 结束后按 export.dir 导出每个代理的图
  - export   从快照数据库导出某次运行中某个代理的最新图
  - version  显示版本信息
  - help     显示帮助

# 运行时组件

  - 结构化日志 (zap), 由 log 配置段控制
  - OpenTelemetry tracing, 由 telemetry 配置段控制
  - Prometheus /metrics 与 /healthz 运维端口, 由 metrics 配置段控制
  - 每轮聚合后的图快照 (gorm), 由 database 配置段控制
  - 分支交换日志 (Redis stream), 由 redis 配置段控制

SIGINT/SIGTERM 请求停止训练: 当前一代完成后训练结束, 已完成的图照常导出。
构建时可通过 ldflags 注入 Version、BuildTime、GitCommit。
*/
package main
