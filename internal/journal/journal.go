package journal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/fedtpg/config"
	"github.com/BaSui01/fedtpg/learn"
)

// ErrClosed is returned once the journal has been closed.
var ErrClosed = errors.New("journal: closed")

// =============================================================================
// 📜 交换日志
// =============================================================================

// Journal 基于 Redis stream 的分支交换日志
type Journal struct {
	redis   *redis.Client
	stream  string
	maxLen  int64
	limiter *rate.Limiter
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
}

var _ learn.ExchangeJournal = (*Journal)(nil)

// Entry 是从 stream 读回的一条投递记录
type Entry struct {
	ID string
	learn.Delivery
}

// New 连接 Redis 并创建 run 对应的日志
func New(ctx context.Context, cfg config.RedisConfig, runID string, logger *zap.Logger) (*Journal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	// 测试连接
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	limit := rate.Inf
	burst := 1
	if cfg.WritesPerSecond > 0 {
		limit = rate.Limit(cfg.WritesPerSecond)
		burst = int(cfg.WritesPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	j := &Journal{
		redis:   client,
		stream:  StreamKey(cfg.KeyPrefix, runID),
		maxLen:  cfg.MaxLen,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With(zap.String("component", "journal")),
	}
	j.logger.Info("exchange journal initialized",
		zap.String("addr", cfg.Addr),
		zap.String("stream", j.stream),
	)
	return j, nil
}

// StreamKey 返回 run 的 stream 键
func StreamKey(prefix, runID string) string {
	if prefix == "" {
		return runID + ":exchanges"
	}
	return prefix + ":" + runID + ":exchanges"
}

// Stream 返回 stream 键
func (j *Journal) Stream() string { return j.stream }

// Record 在一个 pipeline 中写入一轮聚合的全部投递. 每次调用消耗一个限流令牌.
func (j *Journal) Record(ctx context.Context, deliveries []learn.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}

	if err := j.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("journal rate limit: %w", err)
	}

	pipe := j.redis.Pipeline()
	for _, d := range deliveries {
		args := &redis.XAddArgs{
			Stream: j.stream,
			Values: map[string]interface{}{
				"generation": d.Generation,
				"sender":     int(d.Sender),
				"receiver":   int(d.Receiver),
				"vertices":   d.Vertices,
				"edges":      d.Edges,
			},
		}
		if j.maxLen > 0 {
			args.MaxLen = j.maxLen
			args.Approx = true
		}
		pipe.XAdd(ctx, args)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		j.logger.Error("journal write failed", zap.Int("deliveries", len(deliveries)), zap.Error(err))
		return fmt.Errorf("journal write failed: %w", err)
	}

	j.logger.Debug("deliveries recorded", zap.Int("deliveries", len(deliveries)))
	return nil
}

// Entries 按写入顺序返回全部记录
func (j *Journal) Entries(ctx context.Context) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}

	msgs, err := j.redis.XRange(ctx, j.stream, "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("journal read failed: %w", err)
	}

	entries := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		e, err := decode(msg)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func decode(msg redis.XMessage) (Entry, error) {
	field := func(name string) (int64, error) {
		raw, ok := msg.Values[name].(string)
		if !ok {
			return 0, fmt.Errorf("journal entry %s: missing %s", msg.ID, name)
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("journal entry %s: %s: %w", msg.ID, name, err)
		}
		return v, nil
	}

	var vals [5]int64
	for i, name := range []string{"generation", "sender", "receiver", "vertices", "edges"} {
		v, err := field(name)
		if err != nil {
			return Entry{}, err
		}
		vals[i] = v
	}
	return Entry{
		ID: msg.ID,
		Delivery: learn.Delivery{
			Generation: uint64(vals[0]),
			Sender:     learn.AgentID(vals[1]),
			Receiver:   learn.AgentID(vals[2]),
			Vertices:   int(vals[3]),
			Edges:      int(vals[4]),
		},
	}, nil
}

// Ping 检查 Redis 连接, 用作健康检查
func (j *Journal) Ping(ctx context.Context) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}
	return j.redis.Ping(ctx).Err()
}

// Close 关闭连接, 可重复调用
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	j.logger.Info("closing exchange journal")
	return j.redis.Close()
}
