package database

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/fedtpg/config"
)

// ErrUnsupportedDriver 不支持的数据库驱动
var ErrUnsupportedDriver = errors.New("database: unsupported driver")

// Dialector 根据配置选择 GORM 方言
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres":
		return postgres.Open(cfg.DSN()), nil
	case "mysql":
		return mysql.Open(cfg.DSN()), nil
	case "sqlite":
		// 纯 Go 实现，不依赖 cgo
		return sqlite.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: postgres, mysql, sqlite)", ErrUnsupportedDriver, cfg.Driver)
	}
}

// Open 根据配置打开数据库连接
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	logger.Info("database connected", zap.String("driver", cfg.Driver))
	return db, nil
}

// PoolConfigFrom 由数据库配置生成连接池配置
func PoolConfigFrom(cfg config.DatabaseConfig) PoolConfig {
	pc := DefaultPoolConfig()
	if cfg.MaxOpenConns > 0 {
		pc.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		pc.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	// 每个 :memory: 连接都是独立的数据库
	if cfg.Driver == "sqlite" && cfg.Name == ":memory:" {
		pc.MaxOpenConns = 1
		pc.MaxIdleConns = 1
		pc.ConnMaxLifetime = 0
		pc.ConnMaxIdleTime = 0
	}
	return pc
}
