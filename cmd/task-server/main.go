package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"

	"task-api/internal/config"
	"task-api/internal/database"
	"task-api/internal/logging"
	"task-api/internal/middleware" // подключаем наш пакет middleware
	"task-api/internal/tasks"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // алиас, чтобы не конфликтовать с internal/middleware
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Здесь только:
// - загрузка конфига и создание зависимостей;
// - настройка middleware;
// - запуск HTTP-сервера и graceful shutdown.
func main() {
	configPath := flag.String("config", os.Getenv("TASKS_CONFIG"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}

	code := run(cfg, log)
	_ = log.Sync()
	os.Exit(code)
}

func run(cfg config.Config, log *zap.Logger) int {
	ctx := context.Background()

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		return 1
	}

	if cfg.Database.AutoMigrate {
		if err := tasks.Migrate(ctx, db); err != nil {
			log.Error("migration failed", zap.Error(err))
			_ = database.Close(db)
			return 1
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := tasks.NewService(tasks.NewRepository(db), cfg.Tasks.PageSize, log, tasks.NewMetrics(reg))

	if cfg.Database.SeedFile != "" {
		records, err := tasks.NewSeedFile(cfg.Database.SeedFile).Load()
		if err == nil {
			_, err = svc.Seed(ctx, records)
		}
		if err != nil {
			log.Error("seeding failed", zap.Error(err))
			_ = database.Close(db)
			return 1
		}
	}

	handlerCfg := tasks.HandlerConfig{RequestTimeout: cfg.Server.RequestTimeout}
	if cfg.Auth.Enabled {
		handlerCfg.DeleteAuth = &middleware.Credentials{Username: cfg.Auth.Username, Password: cfg.Auth.Password}
	}
	handler := tasks.NewHandler(svc, log, handlerCfg)

	// Роуты живут в internal/tasks (HTTP-слой), main только подключает.
	r := chiWithMiddleware(handler.Router(), log, reg)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server start error", zap.Error(err))
		}
	}()

	// SIGINT/SIGTERM: сначала дожидаемся активных запросов, потом закрываем базу.
	wait := gfshutdown.GracefulShutdown(ctx, cfg.Server.ShutdownTimeout, map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			log.Info("graceful shutdown initiated")
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
			return database.Close(db)
		},
	})

	exitCode := <-wait
	log.Info("server exited", zap.Int("code", exitCode))
	return exitCode
}

// chiWithMiddleware навешивает базовые middleware на уже собранный роутер.
//
// Вынесено в отдельную функцию, чтобы main был читаемым и "про запуск".
// internal/tasks остаётся независимым от общесервисных middleware.
func chiWithMiddleware(h http.Handler, log *zap.Logger, reg prometheus.Registerer) chi.Router {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.MetricsMiddleware(reg))

	r.Mount("/", h)
	return r
}
