// =============================================================================
// 📦 fedtpg 默认配置
// =============================================================================
// 提供所有配置项的合理默认值，训练与变异默认值与 learn / mutator 包保持一致
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/fedtpg/learn"
	"github.com/BaSui01/fedtpg/mutator"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Training:  DefaultTrainingConfig(),
		Mutation:  DefaultMutationConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
		Database:  DefaultDatabaseConfig(),
		Redis:     DefaultRedisConfig(),
		Export:    DefaultExportConfig(),
	}
}

// DefaultTrainingConfig 返回默认训练配置
func DefaultTrainingConfig() TrainingConfig {
	p := learn.DefaultParameters()
	return TrainingConfig{
		Agents:                    4,
		Generations:               p.NbGenerations,
		GenerationsPerAggregation: p.NbGenerationPerAggregation,
		MaxConnections:            p.MaxNbOfConnections,
		Roots:                     p.NbRoots,
		IterationsPerEvaluation:   p.NbIterationsPerPolicyEvaluation,
		MaxActionsPerEvaluation:   p.MaxNbActionsPerEval,
		RatioDeletedRoots:         p.RatioDeletedRoots,
		Seed:                      p.Seed,
		MaxParallelAgents:         p.MaxParallelAgents,
	}
}

// DefaultMutationConfig 返回默认变异配置
func DefaultMutationConfig() MutationConfig {
	p := mutator.DefaultParameters()
	return MutationConfig{
		Graph: GraphMutationConfig{
			MaxInitOutgoingEdges:     p.Graph.MaxInitOutgoingEdges,
			MaxOutgoingEdges:         p.Graph.MaxOutgoingEdges,
			PEdgeDeletion:            p.Graph.PEdgeDeletion,
			PEdgeAddition:            p.Graph.PEdgeAddition,
			PProgramMutation:         p.Graph.PProgramMutation,
			PEdgeDestinationChange:   p.Graph.PEdgeDestinationChange,
			PEdgeDestinationIsAction: p.Graph.PEdgeDestinationIsAction,
		},
		Program: ProgramMutationConfig{
			MaxProgramSize:    p.Program.MaxProgramSize,
			NbRegisters:       p.Program.NbRegisters,
			NbConstants:       p.Program.NbConstants,
			MinConstValue:     p.Program.MinConstValue,
			MaxConstValue:     p.Program.MaxConstValue,
			PDelete:           p.Program.PDelete,
			PAdd:              p.Program.PAdd,
			PMutate:           p.Program.PMutate,
			PSwap:             p.Program.PSwap,
			PConstantMutation: p.Program.PConstantMutation,
		},
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "fedtpg",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标端点配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:         false,
		Port:            9091,
		Namespace:       "fedtpg",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Enabled:         false,
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "fedtpg",
		Password:        "",
		Name:            "fedtpg.db",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:         false,
		Addr:            "localhost:6379",
		Password:        "",
		DB:              0,
		PoolSize:        10,
		MinIdleConns:    2,
		KeyPrefix:       "fedtpg",
		MaxLen:          10000,
		WritesPerSecond: 50,
	}
}

// DefaultExportConfig 返回默认导出配置
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		Dir:    "",
		Format: "json",
	}
}
