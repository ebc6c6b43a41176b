package tasks

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound - задачи с таким ID нет.
var ErrNotFound = errors.New("task not found")

// Repository - доступ к таблице задач.
//
// Хранит "корневой" *gorm.DB, а на каждую операцию берёт из него
// сессию с контекстом запроса (WithContext). Сессия живёт ровно одну операцию,
// пул соединений закрывается при остановке сервиса.
type Repository struct {
	db *gorm.DB
}

// NewRepository создаёт репозиторий поверх открытого соединения.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate создаёт/обновляет схему таблицы задач.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&Task{}); err != nil {
		return fmt.Errorf("failed to migrate tasks: %w", err)
	}
	if err := backfillFolded(ctx, db); err != nil {
		return fmt.Errorf("failed to backfill search columns: %w", err)
	}
	return nil
}

// backfillFolded заполняет title_folded/description_folded у строк,
// созданных до появления этих колонок.
func backfillFolded(ctx context.Context, db *gorm.DB) error {
	var stale []Task
	return db.WithContext(ctx).
		Where("(title_folded = '' AND title <> '') OR (description_folded = '' AND description <> '')").
		FindInBatches(&stale, 100, func(_ *gorm.DB, _ int) error {
			for _, t := range stale {
				err := db.WithContext(ctx).Model(&Task{}).Where("id = ?", t.ID).UpdateColumns(map[string]any{
					"title_folded":       foldCase(t.Title),
					"description_folded": foldCase(t.Description),
				}).Error
				if err != nil {
					return err
				}
			}
			return nil
		}).Error
}

// Create сохраняет новую задачу. ID проставляет база.
func (r *Repository) Create(ctx context.Context, task *Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// CreateAll сохраняет задачи одной транзакцией: либо все, либо ни одной.
func (r *Repository) CreateAll(ctx context.Context, list []Task) error {
	if len(list) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&list).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create tasks: %w", err)
	}
	return nil
}

// FindByID возвращает задачу по ID.
func (r *Repository) FindByID(ctx context.Context, id uint) (*Task, error) {
	var task Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &task, nil
}

// Count считает задачи, подходящие под фильтр.
func (r *Repository) Count(ctx context.Context, f Filter) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Task{}).Scopes(f.Scope).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}

// List возвращает не более limit задач начиная с offset.
// Порядок - по ID, то есть в порядке создания; он одинаков для повторных запросов.
func (r *Repository) List(ctx context.Context, f Filter, limit, offset int) ([]Task, error) {
	if offset < 0 {
		return nil, fmt.Errorf("failed to list tasks: negative offset %d", offset)
	}
	list := make([]Task, 0, limit)
	q := r.db.WithContext(ctx).Model(&Task{}).Scopes(f.Scope).Order("id ASC").Limit(limit)
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return list, nil
}

// Update находит задачу и применяет к ней mutate в одной транзакции.
//
// mutate получает текущее состояние задачи и возвращает изменения. Если mutate
// вернул ошибку - транзакция откатывается и задача остаётся прежней.
// Пустые изменения ничего не пишут.
func (r *Repository) Update(ctx context.Context, id uint, mutate func(current Task) (Changes, error)) (*Task, error) {
	var updated Task

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task Task
		if err := tx.First(&task, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to find task: %w", err)
		}

		changes, err := mutate(task)
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			updated = task
			return nil
		}

		if err := tx.Model(&task).Updates(changes.Columns()).Error; err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		changes.Apply(&task)
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete удаляет задачу по ID.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&Task{}, id)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping проверяет, что база отвечает.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
