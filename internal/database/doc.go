// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供快照存储使用的 GORM 连接：方言选择与连接池管理。

# 概述

Open 按 config.DatabaseConfig 的 driver 选择 postgres、mysql 或
sqlite (纯 Go 的 glebarez/sqlite) 方言。PoolManager 封装连接池
配置、后台健康检查与事务执行，健康检查结果可上报到 metrics.Collector。

# 核心类型

  - PoolManager：连接池管理器，提供 DB()、Ping()、Stats()、Close()
    与 WithTransaction。
  - PoolConfig：连接池配置。
  - StatsRecorder：连接数上报接口。
*/
package database
