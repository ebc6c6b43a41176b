package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB создаёт in-memory SQLite с таблицей задач.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open test database")

	// у каждого соединения ":memory:" своя база
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(context.Background(), db), "failed to migrate test database")
	return db
}

// createTask кладёт задачу напрямую в базу, минуя сервис.
func createTask(t *testing.T, db *gorm.DB, opts ...func(*Task)) Task {
	t.Helper()

	task := Task{
		Title:       "Test",
		Description: "test task",
		Priority:    PriorityHigh,
		DueDate:     time.Now().UTC().Add(7 * 24 * time.Hour).Truncate(time.Second),
	}
	for _, opt := range opts {
		opt(&task)
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}

func withTitle(title string) func(*Task) {
	return func(t *Task) { t.Title = title }
}

func withDescription(d string) func(*Task) {
	return func(t *Task) { t.Description = d }
}

func withPriority(p Priority) func(*Task) {
	return func(t *Task) { t.Priority = p }
}

func withCompleted(c bool) func(*Task) {
	return func(t *Task) { t.Completed = c }
}

// reload читает задачу из базы заново.
func reload(t *testing.T, db *gorm.DB, id uint) Task {
	t.Helper()
	var task Task
	require.NoError(t, db.First(&task, id).Error)
	return task
}

func ptr[T any](v T) *T {
	return &v
}
