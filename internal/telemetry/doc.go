// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 fedtpg 训练进程提供 TracerProvider 和 MeterProvider。
// 聚合轮次与分支合并的 span 由 learn 包通过这里注册的全局 provider 导出。
// 当遥测功能禁用时，使用 noop 实现，不连接任何外部服务。
package telemetry
