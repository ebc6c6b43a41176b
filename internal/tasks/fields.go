package tasks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Fields - разреженный набор полей из тела запроса.
//
// В map попадают только ключи, которые клиент реально прислал.
// Поэтому "поле не передано" (ключа нет) отличается от "поле передано
// со значением по умолчанию" (ключ есть, значение false/""/0).
type Fields map[string]json.RawMessage

// ErrMalformedBody - тело запроса не является JSON-объектом.
var ErrMalformedBody = errors.New("malformed request body")

// DecodeFields читает JSON-объект из r и раскладывает его по ключам.
func DecodeFields(r io.Reader) (Fields, error) {
	dec := json.NewDecoder(r)

	var fields Fields
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	// "null" декодируется в nil map без ошибки, но объектом не является.
	if fields == nil {
		return nil, fmt.Errorf("%w: expected JSON object", ErrMalformedBody)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: unexpected data after JSON object", ErrMalformedBody)
	}
	return fields, nil
}

// FieldError - ошибка одного поля. Формат совместим с ответами вида
// {"detail": [{"loc": [...], "msg": "...", "type": "..."}]}.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError - одно или несколько полей не прошли проверку.
// Операция, вернувшая ValidationError, ничего не меняет в хранилище.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", strings.Join(fe.Loc, "."), fe.Msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(fe FieldError) {
	e.Errors = append(e.Errors, fe)
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// validate - общий валидатор пакета. Тег task_priority проверяет
// принадлежность значения перечислению Priority.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("task_priority", func(fl validator.FieldLevel) bool {
		return Priority(fl.Field().Int()).Valid()
	}); err != nil {
		panic(fmt.Sprintf("register task_priority validation: %v", err))
	}
	return v
}

// fieldSpec описывает одно изменяемое поле задачи: как его разобрать,
// проверить и применить.
type fieldSpec struct {
	name     string
	required bool // обязательно при создании
	parse    func(raw json.RawMessage) (any, *FieldError)
	apply    func(t *Task, v any)
}

// taskFields - поля, которые клиент может передать. Порядок фиксирован,
// чтобы список ошибок был детерминированным.
var taskFields = []fieldSpec{
	{
		name:     "title",
		required: true,
		parse:    parseTitle,
		apply:    func(t *Task, v any) { t.Title = v.(string) },
	},
	{
		name:     "description",
		required: true,
		parse:    parseString,
		apply:    func(t *Task, v any) { t.Description = v.(string) },
	},
	{
		name:     "priority",
		required: true,
		parse:    parsePriority,
		apply:    func(t *Task, v any) { t.Priority = Priority(v.(int)) },
	},
	{
		name:     "due_date",
		required: true,
		parse:    parseDueDate,
		apply:    func(t *Task, v any) { t.DueDate = v.(time.Time) },
	},
	{
		name:  "completed",
		parse: parseBool,
		apply: func(t *Task, v any) { t.Completed = v.(bool) },
	},
}

// NewTask собирает новую задачу из полей запроса на создание.
//
// Обязательны title, description, priority, due_date. completed при создании
// не задаётся (всегда false), лишние ключи игнорируются.
func NewTask(fields Fields) (Task, error) {
	verr := &ValidationError{}
	task := Task{}

	for _, spec := range taskFields {
		raw, ok := fields[spec.name]
		if !spec.required {
			continue
		}
		if !ok {
			verr.add(FieldError{Loc: bodyLoc(spec.name), Msg: "Field required", Type: "missing"})
			continue
		}
		v, fe := spec.parse(raw)
		if fe != nil {
			fe.Loc = bodyLoc(spec.name)
			verr.add(*fe)
			continue
		}
		spec.apply(&task, v)
	}

	if err := verr.orNil(); err != nil {
		return Task{}, err
	}
	return task, nil
}

// Changes - проверенный набор изменений: колонка -> новое значение.
type Changes map[string]any

// ParseChanges проверяет все переданные поля по тем же правилам, что и при
// создании. Если хотя бы одно поле невалидно - возвращается ValidationError
// со всеми ошибками сразу и ни одно изменение не применяется.
func ParseChanges(fields Fields) (Changes, error) {
	verr := &ValidationError{}
	changes := Changes{}

	for _, spec := range taskFields {
		raw, ok := fields[spec.name]
		if !ok {
			continue
		}
		v, fe := spec.parse(raw)
		if fe != nil {
			fe.Loc = bodyLoc(spec.name)
			verr.add(*fe)
			continue
		}
		changes[spec.name] = v
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return changes, nil
}

// Apply переносит изменения на задачу. Не указанные поля не трогаются.
func (c Changes) Apply(t *Task) {
	for _, spec := range taskFields {
		if v, ok := c[spec.name]; ok {
			spec.apply(t, v)
		}
	}
}

// Columns возвращает изменения в виде, пригодном для gorm Updates.
func (c Changes) Columns() map[string]any {
	cols := make(map[string]any, len(c)+2)
	for k, v := range c {
		cols[k] = v
	}
	// поисковые колонки идут вместе с исходными
	if v, ok := c["title"]; ok {
		cols["title_folded"] = foldCase(v.(string))
	}
	if v, ok := c["description"]; ok {
		cols["description_folded"] = foldCase(v.(string))
	}
	return cols
}

func bodyLoc(name string) []string {
	return []string{"body", name}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func parseString(raw json.RawMessage) (any, *FieldError) {
	var s string
	if isNull(raw) || json.Unmarshal(raw, &s) != nil {
		return nil, &FieldError{Msg: "Input should be a valid string", Type: "string_type"}
	}
	return s, nil
}

func parseTitle(raw json.RawMessage) (any, *FieldError) {
	v, fe := parseString(raw)
	if fe != nil {
		return nil, fe
	}
	if err := validate.Var(v.(string), "required"); err != nil {
		return nil, &FieldError{Msg: "String should have at least 1 character", Type: "string_too_short"}
	}
	return v, nil
}

func parsePriority(raw json.RawMessage) (any, *FieldError) {
	var n int
	if isNull(raw) || json.Unmarshal(raw, &n) != nil {
		return nil, &FieldError{Msg: "Input should be a valid integer", Type: "int_type"}
	}
	if err := validate.Var(n, "task_priority"); err != nil {
		return nil, &FieldError{Msg: "Input should be 1, 2 or 3", Type: "enum"}
	}
	return n, nil
}

func parseBool(raw json.RawMessage) (any, *FieldError) {
	var b bool
	if isNull(raw) || json.Unmarshal(raw, &b) != nil {
		return nil, &FieldError{Msg: "Input should be a valid boolean", Type: "bool_type"}
	}
	return b, nil
}

// dueDateLayouts - форматы, которые принимает due_date.
// Время без зоны считается UTC, дата без времени - полночь UTC.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDueDate(raw json.RawMessage) (any, *FieldError) {
	var s string
	if isNull(raw) || json.Unmarshal(raw, &s) != nil {
		return nil, &FieldError{Msg: "Input should be a valid datetime", Type: "datetime_type"}
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return nil, &FieldError{Msg: "Input should be a valid datetime", Type: "datetime_parsing"}
	}
	return t, nil
}

// ParseTimestamp разбирает дату/время в одном из поддерживаемых форматов.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", s)
}
