package tasks

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Priority - приоритет задачи.
//
// Закрытое перечисление: допустимы только PriorityHigh, PriorityMedium, PriorityLow.
// Любое другое число отклоняется на границе ввода (см. fields.go).
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

// Valid сообщает, входит ли значение в перечисление.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Task - модель задачи.
//
// Хранится в реляционной БД (gorm) и сериализуется в JSON для API.
// ID выдаёт база (автоинкремент) и после создания не меняется.
type Task struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"not null" json:"description"`
	Priority    Priority  `gorm:"not null;index" json:"priority"`
	DueDate     time.Time `gorm:"not null" json:"due_date"`
	Completed   bool      `gorm:"not null;default:false;index" json:"completed"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`

	// Копии title/description в нижнем регистре для поиска. LOWER() в SQLite
	// понимает только ASCII, поэтому регистр сворачиваем в Go.
	TitleFolded       string `gorm:"not null;default:''" json:"-"`
	DescriptionFolded string `gorm:"not null;default:''" json:"-"`
}

// BeforeSave обновляет поисковые колонки при Create/Save.
// Частичные обновления (Updates с map) получают их из Changes.Columns.
func (t *Task) BeforeSave(*gorm.DB) error {
	t.TitleFolded = foldCase(t.Title)
	t.DescriptionFolded = foldCase(t.Description)
	return nil
}

func foldCase(s string) string {
	return strings.ToLower(s)
}

// TableName возвращает имя таблицы для Task.
func (Task) TableName() string {
	return "tasks"
}
