// Package database открывает пул соединений gorm для выбранного драйвера.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config - настройки подключения к базе.
type Config struct {
	Driver        string        `yaml:"driver" validate:"oneof=sqlite postgres mysql"`
	DSN           string        `yaml:"dsn" validate:"required"`
	LogLevel      string        `yaml:"log_level" validate:"omitempty,oneof=silent error warn info"`
	SlowThreshold time.Duration `yaml:"slow_threshold"`
	MaxOpenConns  int           `yaml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns  int           `yaml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLife   time.Duration `yaml:"conn_max_life"`
	PingOnStart   bool          `yaml:"ping_on_start"`
	AutoMigrate   bool          `yaml:"auto_migrate"`
	SeedFile      string        `yaml:"seed_file"`
}

// Dialector возвращает gorm-диалект для драйвера из конфига.
func Dialector(cfg Config) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Open открывает соединение и настраивает пул.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(log, cfg.LogLevel, cfg.SlowThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	switch {
	case strings.EqualFold(cfg.Driver, "sqlite"):
		// SQLite не любит параллельных писателей, а ":memory:" у каждого
		// соединения своя - держим ровно одно.
		sqlDB.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	default:
		sqlDB.SetMaxOpenConns(50)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLife > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLife)
	} else {
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if cfg.PingOnStart {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(pingCtx); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("database ping failed: %w", err)
		}
	}

	log.Info("database connected", zap.String("driver", cfg.Driver))
	return db, nil
}

// Close закрывает пул соединений.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
