package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/fedtpg/config"
	"github.com/BaSui01/fedtpg/learn"
	"github.com/BaSui01/fedtpg/testutil"
)

// =============================================================================
// 🧪 Journal 测试
// =============================================================================

func setupTestJournal(t *testing.T, mutate func(*config.RedisConfig)) (*miniredis.Miniredis, *Journal) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := config.DefaultRedisConfig()
	cfg.Addr = mr.Addr()
	if mutate != nil {
		mutate(&cfg)
	}

	j, err := New(context.Background(), cfg, "run-1", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return mr, j
}

func TestNew_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.DefaultRedisConfig()
	cfg.Addr = mr.Addr()
	mr.Close()

	_, err := New(context.Background(), cfg, "run-1", nil)
	assert.Error(t, err)
}

func TestStreamKey(t *testing.T) {
	assert.Equal(t, "fedtpg:abc:exchanges", StreamKey("fedtpg", "abc"))
	assert.Equal(t, "abc:exchanges", StreamKey("", "abc"))
}

func TestJournal_RecordAndEntries(t *testing.T) {
	mr, j := setupTestJournal(t, nil)
	ctx := testutil.TestContext(t)

	round := []learn.Delivery{
		{Generation: 5, Sender: 0, Receiver: 1, Vertices: 7, Edges: 9},
		{Generation: 5, Sender: 1, Receiver: 0, Vertices: 4, Edges: 3},
	}
	require.NoError(t, j.Record(ctx, round))
	require.NoError(t, j.Record(ctx, nil))
	require.NoError(t, j.Record(ctx, []learn.Delivery{{Generation: 10, Sender: 2, Receiver: 0, Vertices: 1, Edges: 0}}))

	assert.True(t, mr.Exists("fedtpg:run-1:exchanges"))

	entries, err := j.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, round[0], entries[0].Delivery)
	assert.Equal(t, round[1], entries[1].Delivery)
	assert.Equal(t, uint64(10), entries[2].Generation)
	assert.NotEmpty(t, entries[2].ID)
}

func TestJournal_Closed(t *testing.T) {
	_, j := setupTestJournal(t, nil)
	ctx := context.Background()

	require.NoError(t, j.Ping(ctx))
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	assert.True(t, errors.Is(j.Ping(ctx), ErrClosed))
	assert.True(t, errors.Is(j.Record(ctx, []learn.Delivery{{}}), ErrClosed))
	_, err := j.Entries(ctx)
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestJournal_RateLimitHonoursContext(t *testing.T) {
	_, j := setupTestJournal(t, func(c *config.RedisConfig) { c.WritesPerSecond = 0.01 })

	// the single burst token is spent by the first write
	require.NoError(t, j.Record(context.Background(), []learn.Delivery{{Sender: 1}}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := j.Record(ctx, []learn.Delivery{{Sender: 2}})
	assert.Error(t, err)
}

func TestJournal_ServerFailure(t *testing.T) {
	mr, j := setupTestJournal(t, nil)
	mr.SetError("ERR journal unavailable")

	err := j.Record(context.Background(), []learn.Delivery{{Sender: 1}})
	assert.Error(t, err)
	assert.Error(t, j.Ping(context.Background()))
}
