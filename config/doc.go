// Package config 提供 fedtpg 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 (FEDTPG_ 前缀) 的顺序叠加，
// 训练与变异部分可转换为 learn.Parameters 直接交给 FLAgentManager。
package config
