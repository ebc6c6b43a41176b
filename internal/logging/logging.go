// Package logging собирает zap-логгер по конфигу: уровень, формат, куда писать.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config - настройки логирования.
type Config struct {
	Level  string     `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string     `yaml:"format" validate:"oneof=json console"`
	Output string     `yaml:"output" validate:"required"` // stdout | stderr | file | путь к файлу
	File   FileConfig `yaml:"file"`
}

// FileConfig - вывод в файл с ротацией (lumberjack).
type FileConfig struct {
	Dir        string `yaml:"dir"`
	Filename   string `yaml:"filename"` // без расширения, .log добавляется
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	Compress   bool   `yaml:"compress"`
}

// New создаёт логгер.
func New(cfg Config) (*zap.Logger, error) {
	ws, err := buildWriteSyncer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create write syncer: %w", err)
	}

	core := zapcore.NewCore(buildEncoder(cfg.Format), ws, ParseLevel(cfg.Level))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func buildEncoder(format string) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if format == "json" {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func buildWriteSyncer(cfg Config) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(cfg.Output) {
	case "stdout", "":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	case "file":
		return buildFileWriteSyncer(cfg.File)
	default:
		// Не ключевое слово - значит путь к файлу.
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return zapcore.AddSync(f), nil
	}
}

// buildFileWriteSyncer пишет в <dir>/<filename>.log с ротацией по размеру.
func buildFileWriteSyncer(fc FileConfig) (zapcore.WriteSyncer, error) {
	if fc.Dir == "" || fc.Filename == "" {
		return nil, fmt.Errorf("file.dir and file.filename are required when output is 'file'")
	}
	if err := os.MkdirAll(fc.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	maxSize := fc.MaxSizeMB
	if maxSize == 0 {
		maxSize = 100
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(fc.Dir, fc.Filename+".log"),
		MaxSize:    maxSize,
		MaxAge:     fc.MaxAgeDays,
		MaxBackups: fc.MaxBackups,
		Compress:   fc.Compress,
		LocalTime:  true,
	}), nil
}

// ParseLevel переводит строку в уровень zap. Неизвестное значение - info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
