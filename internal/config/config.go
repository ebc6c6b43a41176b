// Package config загружает настройки сервиса: значения по умолчанию,
// затем YAML-файл, затем переменные окружения.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"task-api/internal/database"
	"task-api/internal/logging"
)

// Config - полный конфиг сервиса.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Database database.Config `yaml:"database"`
	Logging  logging.Config  `yaml:"logging"`
	Tasks    TasksConfig     `yaml:"tasks"`
	Auth     AuthConfig      `yaml:"auth"`
	Metrics  MetricsConfig   `yaml:"metrics"`
}

// ServerConfig - HTTP-сервер.
type ServerConfig struct {
	Address         string        `yaml:"address" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" validate:"gte=0"`
	RequestTimeout  time.Duration `yaml:"request_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// TasksConfig - настройки API задач.
type TasksConfig struct {
	PageSize int `yaml:"page_size" validate:"min=1,max=1000"`
}

// AuthConfig - Basic Auth для DELETE. Выключено по умолчанию.
type AuthConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username" validate:"required_if=Enabled true"`
	Password string `yaml:"password" validate:"required_if=Enabled true"`
}

// MetricsConfig - эндпоинт Prometheus.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// Default возвращает конфиг, с которым сервис стартует без файла.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: database.Config{
			Driver:        "sqlite",
			DSN:           "tasks.db",
			LogLevel:      "warn",
			SlowThreshold: 200 * time.Millisecond,
			PingOnStart:   true,
			AutoMigrate:   true,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		Tasks: TasksConfig{
			PageSize: 5,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// LookupFunc - источник переменных окружения (os.LookupEnv в проде, map в тестах).
type LookupFunc func(key string) (string, bool)

// Load читает конфиг из path (пустой path - только значения по умолчанию)
// и применяет переменные окружения процесса.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv - то же, что Load, но с явным источником окружения.
func LoadWithEnv(path string, lookup LookupFunc) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		// Unmarshal поверх значений по умолчанию: незаданные ключи сохраняют их.
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv накладывает TASKS_* переменные окружения.
func applyEnv(cfg *Config, lookup LookupFunc) error {
	if v, ok := lookup("TASKS_HTTP_ADDR"); ok && v != "" {
		cfg.Server.Address = v
	}
	if v, ok := lookup("TASKS_DB_DRIVER"); ok && v != "" {
		cfg.Database.Driver = v
	}
	if v, ok := lookup("TASKS_DB_DSN"); ok && v != "" {
		cfg.Database.DSN = v
	}
	if v, ok := lookup("TASKS_LOG_LEVEL"); ok && v != "" {
		cfg.Logging.Level = v
	}
	if v, ok := lookup("TASKS_PAGE_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TASKS_PAGE_SIZE %q: %w", v, err)
		}
		cfg.Tasks.PageSize = n
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate проверяет конфиг по тегам validate.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed on %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
