// =============================================================================
// 📦 fedtpg 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("fedtpg.yaml").
//	    WithEnvPrefix("FEDTPG").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/fedtpg/learn"
	"github.com/BaSui01/fedtpg/mutator"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 fedtpg 的完整配置结构
type Config struct {
	// Training 联邦训练配置
	Training TrainingConfig `yaml:"training" env:"TRAINING"`

	// Mutation 变异算子配置
	Mutation MutationConfig `yaml:"mutation" env:"MUTATION"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics 指标端点配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Database 快照数据库配置
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Redis 交换日志配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Export 训练结束后的图导出配置
	Export ExportConfig `yaml:"export" env:"EXPORT"`
}

// TrainingConfig 联邦训练配置
type TrainingConfig struct {
	// 代理数量，小于 2 时按 2 处理
	Agents int `yaml:"agents" env:"AGENTS"`
	// 训练代数
	Generations uint64 `yaml:"generations" env:"GENERATIONS"`
	// 聚合周期，0 表示不合并
	GenerationsPerAggregation uint64 `yaml:"generations_per_aggregation" env:"GENERATIONS_PER_AGGREGATION"`
	// 每个代理的最大连接数
	MaxConnections int `yaml:"max_connections" env:"MAX_CONNECTIONS"`
	// 每代根团队数量
	Roots int `yaml:"roots" env:"ROOTS"`
	// 每个根的评估局数
	IterationsPerEvaluation int `yaml:"iterations_per_evaluation" env:"ITERATIONS_PER_EVALUATION"`
	// 每局最大动作数
	MaxActionsPerEvaluation int `yaml:"max_actions_per_evaluation" env:"MAX_ACTIONS_PER_EVALUATION"`
	// 每代删除的根比例
	RatioDeletedRoots float64 `yaml:"ratio_deleted_roots" env:"RATIO_DELETED_ROOTS"`
	// 随机种子
	Seed int64 `yaml:"seed" env:"SEED"`
	// 并行训练的最大代理数，0 表示不限制
	MaxParallelAgents int `yaml:"max_parallel_agents" env:"MAX_PARALLEL_AGENTS"`
}

// MutationConfig 变异配置
type MutationConfig struct {
	Graph   GraphMutationConfig   `yaml:"graph" env:"GRAPH"`
	Program ProgramMutationConfig `yaml:"program" env:"PROGRAM"`
}

// GraphMutationConfig 团队级变异配置
type GraphMutationConfig struct {
	MaxInitOutgoingEdges     int     `yaml:"max_init_outgoing_edges" env:"MAX_INIT_OUTGOING_EDGES"`
	MaxOutgoingEdges         int     `yaml:"max_outgoing_edges" env:"MAX_OUTGOING_EDGES"`
	PEdgeDeletion            float64 `yaml:"p_edge_deletion" env:"P_EDGE_DELETION"`
	PEdgeAddition            float64 `yaml:"p_edge_addition" env:"P_EDGE_ADDITION"`
	PProgramMutation         float64 `yaml:"p_program_mutation" env:"P_PROGRAM_MUTATION"`
	PEdgeDestinationChange   float64 `yaml:"p_edge_destination_change" env:"P_EDGE_DESTINATION_CHANGE"`
	PEdgeDestinationIsAction float64 `yaml:"p_edge_destination_is_action" env:"P_EDGE_DESTINATION_IS_ACTION"`
}

// ProgramMutationConfig 程序级变异配置
type ProgramMutationConfig struct {
	MaxProgramSize    int     `yaml:"max_program_size" env:"MAX_PROGRAM_SIZE"`
	NbRegisters       int     `yaml:"nb_registers" env:"NB_REGISTERS"`
	NbConstants       int     `yaml:"nb_constants" env:"NB_CONSTANTS"`
	MinConstValue     float64 `yaml:"min_const_value" env:"MIN_CONST_VALUE"`
	MaxConstValue     float64 `yaml:"max_const_value" env:"MAX_CONST_VALUE"`
	PDelete           float64 `yaml:"p_delete" env:"P_DELETE"`
	PAdd              float64 `yaml:"p_add" env:"P_ADD"`
	PMutate           float64 `yaml:"p_mutate" env:"P_MUTATE"`
	PSwap             float64 `yaml:"p_swap" env:"P_SWAP"`
	PConstantMutation float64 `yaml:"p_constant_mutation" env:"P_CONSTANT_MUTATION"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig 指标端点配置
type MetricsConfig struct {
	// 是否在训练期间暴露 /metrics 与 /healthz
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 监听端口
	Port int `yaml:"port" env:"PORT"`
	// Prometheus 命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 是否保存每轮聚合后的图快照
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 驱动类型: postgres, mysql, sqlite
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名 (sqlite 时为文件路径)
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 是否记录分支交换日志
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	// 日志 stream 的键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// stream 最大长度 (近似裁剪)
	MaxLen int64 `yaml:"max_len" env:"MAX_LEN"`
	// 每秒最大写入次数，0 表示不限制
	WritesPerSecond float64 `yaml:"writes_per_second" env:"WRITES_PER_SECOND"`
}

// ExportConfig 图导出配置
type ExportConfig struct {
	// 导出目录，为空时不导出
	Dir string `yaml:"dir" env:"DIR"`
	// 导出格式: json, yaml
	Format string `yaml:"format" env:"FORMAT"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "FEDTPG",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置，文件不存在时保留默认值
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段，键名为 PREFIX_SECTION_FIELD
func setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		envTag := t.Field(i).Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue, ok := os.LookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// ErrInvalidConfig 配置校验失败
var ErrInvalidConfig = errors.New("config: invalid configuration")

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 验证配置，训练参数的范围检查由 learn.Parameters.Validate 完成
func (c *Config) Validate() error {
	var errs []string

	if err := c.LearnParameters().Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("unknown log format %q", c.Log.Format))
	}

	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		errs = append(errs, "invalid metrics port")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry sample_rate must be between 0 and 1")
	}

	if c.Database.Enabled && c.Database.DSN() == "" {
		errs = append(errs, fmt.Sprintf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis addr is required")
	}

	switch c.Export.Format {
	case "json", "yaml":
	default:
		errs = append(errs, fmt.Sprintf("unknown export format %q", c.Export.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

// LearnParameters 将训练与变异配置转换为 learn.Parameters
func (c *Config) LearnParameters() learn.Parameters {
	t := c.Training
	return learn.Parameters{
		NbGenerations:                   t.Generations,
		NbGenerationPerAggregation:      t.GenerationsPerAggregation,
		MaxNbOfConnections:              t.MaxConnections,
		NbRoots:                         t.Roots,
		NbIterationsPerPolicyEvaluation: t.IterationsPerEvaluation,
		MaxNbActionsPerEval:             t.MaxActionsPerEvaluation,
		RatioDeletedRoots:               t.RatioDeletedRoots,
		MaxParallelAgents:               t.MaxParallelAgents,
		Seed:                            t.Seed,
		Mutation:                        c.Mutation.Parameters(),
	}
}

// Parameters 转换为 mutator.Parameters
func (m MutationConfig) Parameters() mutator.Parameters {
	return mutator.Parameters{
		Graph: mutator.GraphParameters{
			MaxInitOutgoingEdges:     m.Graph.MaxInitOutgoingEdges,
			MaxOutgoingEdges:         m.Graph.MaxOutgoingEdges,
			PEdgeDeletion:            m.Graph.PEdgeDeletion,
			PEdgeAddition:            m.Graph.PEdgeAddition,
			PProgramMutation:         m.Graph.PProgramMutation,
			PEdgeDestinationChange:   m.Graph.PEdgeDestinationChange,
			PEdgeDestinationIsAction: m.Graph.PEdgeDestinationIsAction,
		},
		Program: mutator.ProgramParameters{
			MaxProgramSize:    m.Program.MaxProgramSize,
			NbRegisters:       m.Program.NbRegisters,
			NbConstants:       m.Program.NbConstants,
			MinConstValue:     m.Program.MinConstValue,
			MaxConstValue:     m.Program.MaxConstValue,
			PDelete:           m.Program.PDelete,
			PAdd:              m.Program.PAdd,
			PMutate:           m.Program.PMutate,
			PSwap:             m.Program.PSwap,
			PConstantMutation: m.Program.PConstantMutation,
		},
	}
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
