package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/BaSui01/fedtpg/config"
)

// =============================================================================
// 🧪 PoolManager 测试
// =============================================================================

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *gorm.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	return mockDB, mock, gormDB
}

func testPoolConfig() PoolConfig {
	return PoolConfig{MaxOpenConns: 10, MaxIdleConns: 5, Name: "test"}
}

func TestNewPoolManager(t *testing.T) {
	mockDB, _, gormDB := setupTestDB(t)
	defer mockDB.Close()

	cfg := testPoolConfig()
	cfg.ConnMaxLifetime = time.Hour

	manager, err := NewPoolManager(gormDB, cfg, zap.NewNop())
	require.NoError(t, err)

	assert.Same(t, gormDB, manager.DB())
	assert.Equal(t, cfg, manager.config)
	assert.Equal(t, 10, manager.GetStats().MaxOpenConnections)

	_, err = NewPoolManager(nil, cfg, nil)
	assert.Error(t, err)
}

func TestPoolManager_Ping(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	manager, err := NewPoolManager(gormDB, testPoolConfig(), zap.NewNop())
	require.NoError(t, err)

	mock.ExpectPing()
	assert.NoError(t, manager.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(sql.ErrConnDone)
	assert.Error(t, manager.Ping(context.Background()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManager_WithTransaction(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	manager, err := NewPoolManager(gormDB, testPoolConfig(), zap.NewNop())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, manager.WithTransaction(context.Background(), func(*gorm.DB) error { return nil }))

	mock.ExpectBegin()
	mock.ExpectRollback()
	err = manager.WithTransaction(context.Background(), func(*gorm.DB) error { return assert.AnError })
	assert.True(t, errors.Is(err, assert.AnError))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManager_Close(t *testing.T) {
	_, mock, gormDB := setupTestDB(t)

	manager, err := NewPoolManager(gormDB, testPoolConfig(), zap.NewNop())
	require.NoError(t, err)

	mock.ExpectClose()
	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, manager.Ping(context.Background()))
	assert.Error(t, manager.WithTransaction(context.Background(), func(*gorm.DB) error { return nil }))
}

type statsLog struct {
	mu    sync.Mutex
	names []string
}

func (s *statsLog) RecordDBConnections(database string, _, _ int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, database)
}

func (s *statsLog) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

func TestPoolManager_HealthCheckReportsStats(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	rec := &statsLog{}
	manager, err := NewPoolManager(gormDB, testPoolConfig(), zap.NewNop(), WithStatsRecorder(rec))
	require.NoError(t, err)

	mock.ExpectPing()
	manager.checkHealth()
	assert.Equal(t, []string{"test"}, rec.recorded())

	mock.ExpectPing().WillReturnError(sql.ErrConnDone)
	manager.checkHealth()
	assert.Len(t, rec.recorded(), 1, "failed checks are not reported")
}

func TestPoolConfigFrom(t *testing.T) {
	cfg := config.DefaultDatabaseConfig()
	cfg.MaxOpenConns = 3
	cfg.MaxIdleConns = 0

	pc := PoolConfigFrom(cfg)
	assert.Equal(t, 3, pc.MaxOpenConns)
	assert.Equal(t, DefaultPoolConfig().MaxIdleConns, pc.MaxIdleConns)
	assert.Equal(t, cfg.ConnMaxLifetime, pc.ConnMaxLifetime)

	cfg.Name = ":memory:"
	pc = PoolConfigFrom(cfg)
	assert.Equal(t, 1, pc.MaxOpenConns)
	assert.Equal(t, time.Duration(0), pc.ConnMaxLifetime)
}
