package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// SeedFile - JSON-файл с начальными задачами (массив объектов в формате
// запроса на создание).
//
// Используется для наполнения пустой базы при старте (dev/demo окружения).
type SeedFile struct {
	filename string
}

// NewSeedFile создаёт загрузчик для файла filename.
func NewSeedFile(filename string) *SeedFile {
	return &SeedFile{filename: filename}
}

// Load читает записи из файла.
//
// Отсутствующий или пустой файл - не ошибка, просто нет записей.
func (sf *SeedFile) Load() ([]Fields, error) {
	data, err := os.ReadFile(sf.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var records []Fields
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", sf.filename, err)
	}
	return records, nil
}

// Seed создаёт задачи из records, но только если таблица пуста.
// Каждая запись проходит ту же валидацию, что и POST /tasks/; если хоть одна
// невалидна, не создаётся ничего. Вставка идёт одной транзакцией.
// Возвращает количество созданных задач.
func (s *Service) Seed(ctx context.Context, records []Fields) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	existing, err := s.repo.Count(ctx, Filter{})
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		s.log.Info("seed skipped: tasks table is not empty", zap.Int64("existing", existing))
		return 0, nil
	}

	list := make([]Task, 0, len(records))
	for i, rec := range records {
		task, err := NewTask(rec)
		if err != nil {
			return 0, fmt.Errorf("seed record %d: %w", i, err)
		}
		list = append(list, task)
	}

	if err := s.repo.CreateAll(ctx, list); err != nil {
		return 0, err
	}
	s.log.Info("tasks seeded", zap.Int("count", len(list)))
	return len(list), nil
}
