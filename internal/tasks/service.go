// Service - слой бизнес-логики задач: handler -> service -> repository.
package tasks

import (
	"context"

	"go.uber.org/zap"
)

// Service - слой бизнес-логики.
//
// Каждая операция - самостоятельная единица работы над хранилищем:
// состояние между запросами сервис не держит, блокировок нет.
type Service struct {
	repo     *Repository
	pageSize int
	log      *zap.Logger
	metrics  *Metrics
}

// NewService создаёт сервис. pageSize < 1 заменяется на DefaultPageSize,
// log и metrics могут быть nil.
func NewService(repo *Repository, pageSize int, log *zap.Logger, metrics *Metrics) *Service {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		pageSize: pageSize,
		log:      log,
		metrics:  metrics,
	}
}

// PageSize - размер страницы списка.
func (s *Service) PageSize() int {
	return s.pageSize
}

// ListResult - страница задач и её описание для построения ссылок.
type ListResult struct {
	Page  Page
	Items []Task
}

// ListTasks возвращает страницу задач, подходящих под фильтр.
//
// Если под фильтр не подходит ничего или страница дальше последней,
// выборка не выполняется и список пуст.
func (s *Service) ListTasks(ctx context.Context, f Filter, pageNumber int) (res ListResult, err error) {
	defer func() { s.metrics.observe("list", err) }()

	// Зачем начинать работу, если контекст уже отменен
	if err := ctx.Err(); err != nil {
		return ListResult{}, err
	}
	if pageNumber < 1 {
		return ListResult{}, &ValidationError{Errors: []FieldError{{
			Loc: queryLoc("page"), Msg: "Input should be greater than or equal to 1", Type: "greater_than_equal",
		}}}
	}

	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return ListResult{}, err
	}

	page := NewPage(pageNumber, s.pageSize, total)
	items := []Task{}
	if !page.Empty() && !page.BeyondLast() {
		items, err = s.repo.List(ctx, f, page.Limit(), page.Offset())
		if err != nil {
			return ListResult{}, err
		}
	}

	s.metrics.observePage(len(items))
	return ListResult{Page: page, Items: items}, nil
}

// GetTask возвращает задачу по id.
func (s *Service) GetTask(ctx context.Context, id uint) (task Task, err error) {
	defer func() { s.metrics.observe("get", err) }()

	if err := ctx.Err(); err != nil {
		return Task{}, err
	}

	found, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Task{}, err
	}
	return *found, nil
}

// CreateTask проверяет поля и создаёт задачу. При ошибке валидации
// в базу ничего не пишется.
func (s *Service) CreateTask(ctx context.Context, fields Fields) (task Task, err error) {
	defer func() { s.metrics.observe("create", err) }()

	if err := ctx.Err(); err != nil {
		return Task{}, err
	}

	task, err = NewTask(fields)
	if err != nil {
		return Task{}, err
	}

	if err := s.repo.Create(ctx, &task); err != nil {
		return Task{}, err
	}

	s.log.Info("task created", zap.Uint("task_id", task.ID), zap.Stringer("priority", task.Priority))
	return task, nil
}

// UpdateTask частично обновляет задачу: меняются только переданные поля.
//
// Сначала проверяется, что задача существует (иначе ErrNotFound при любом теле),
// затем валидируются все переданные поля. Одна невалидная ошибка отменяет
// всё обновление целиком.
func (s *Service) UpdateTask(ctx context.Context, id uint, fields Fields) (task Task, err error) {
	defer func() { s.metrics.observe("update", err) }()

	if err := ctx.Err(); err != nil {
		return Task{}, err
	}

	var applied Changes
	updated, err := s.repo.Update(ctx, id, func(Task) (Changes, error) {
		changes, err := ParseChanges(fields)
		applied = changes
		return changes, err
	})
	if err != nil {
		return Task{}, err
	}

	if len(applied) > 0 {
		s.log.Info("task updated", zap.Uint("task_id", id), zap.Strings("fields", changedNames(applied)))
	}
	return *updated, nil
}

// DeleteTask удаляет задачу по id.
func (s *Service) DeleteTask(ctx context.Context, id uint) (err error) {
	defer func() { s.metrics.observe("delete", err) }()

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info("task deleted", zap.Uint("task_id", id))
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func changedNames(c Changes) []string {
	names := make([]string, 0, len(c))
	for _, spec := range taskFields {
		if _, ok := c[spec.name]; ok {
			names = append(names, spec.name)
		}
	}
	return names
}
