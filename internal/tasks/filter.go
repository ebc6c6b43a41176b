package tasks

import (
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Filter - необязательные условия отбора задач.
//
// nil означает "условие не задано". Все заданные условия объединяются через AND.
type Filter struct {
	Completed    *bool
	Priority     *Priority
	SearchString *string
}

// likeEscape - символ экранирования для LIKE. Обратный слэш не годится:
// MySQL трактует его внутри строкового литерала.
const likeEscape = "!"

var likeReplacer = strings.NewReplacer(
	likeEscape, likeEscape+likeEscape,
	"%", likeEscape+"%",
	"_", likeEscape+"_",
)

// Scope возвращает gorm-scope с условиями фильтра. Подходит и для Count, и для Find.
func (f Filter) Scope(db *gorm.DB) *gorm.DB {
	if f.Completed != nil {
		db = db.Where("completed = ?", *f.Completed)
	}
	if f.Priority != nil {
		db = db.Where("priority = ?", int(*f.Priority))
	}
	if f.SearchString != nil {
		pattern := "%" + likeReplacer.Replace(foldCase(*f.SearchString)) + "%"
		db = db.Where(
			"(title_folded LIKE ? ESCAPE '"+likeEscape+"' OR description_folded LIKE ? ESCAPE '"+likeEscape+"')",
			pattern, pattern,
		)
	}
	return db
}

// Matches - тот же предикат, что и Scope, но для задачи в памяти.
func (f Filter) Matches(t Task) bool {
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.SearchString != nil {
		needle := foldCase(*f.SearchString)
		if !strings.Contains(foldCase(t.Title), needle) &&
			!strings.Contains(foldCase(t.Description), needle) {
			return false
		}
	}
	return true
}

// Values кодирует фильтр обратно в query-параметры. Используется
// для ссылок next_url/prev_url.
func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.Completed != nil {
		v.Set("completed", strconv.FormatBool(*f.Completed))
	}
	if f.Priority != nil {
		v.Set("priority", strconv.Itoa(int(*f.Priority)))
	}
	if f.SearchString != nil {
		v.Set("search_string", *f.SearchString)
	}
	return v
}

// ParseListQuery разбирает query-параметры списка задач: фильтр и номер страницы.
//
// Невалидные параметры (page < 1, priority вне 1..3, completed не bool)
// дают ValidationError до обращения к базе.
func ParseListQuery(q url.Values) (Filter, int, error) {
	verr := &ValidationError{}
	f := Filter{}
	page := 1

	if raw, ok := lookup(q, "completed"); ok {
		b, err := parseQueryBool(raw)
		if err != nil {
			verr.add(FieldError{Loc: queryLoc("completed"), Msg: "Input should be a valid boolean", Type: "bool_parsing"})
		} else {
			f.Completed = &b
		}
	}

	if raw, ok := lookup(q, "priority"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		switch {
		case err != nil:
			verr.add(FieldError{Loc: queryLoc("priority"), Msg: "Input should be a valid integer", Type: "int_parsing"})
		case validate.Var(n, "task_priority") != nil:
			verr.add(FieldError{Loc: queryLoc("priority"), Msg: "Input should be 1, 2 or 3", Type: "enum"})
		default:
			p := Priority(n)
			f.Priority = &p
		}
	}

	if raw, ok := lookup(q, "search_string"); ok {
		s := raw
		f.SearchString = &s
	}

	if raw, ok := lookup(q, "page"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		switch {
		case err != nil:
			verr.add(FieldError{Loc: queryLoc("page"), Msg: "Input should be a valid integer", Type: "int_parsing"})
		case validate.Var(n, "min=1") != nil:
			verr.add(FieldError{Loc: queryLoc("page"), Msg: "Input should be greater than or equal to 1", Type: "greater_than_equal"})
		default:
			page = n
		}
	}

	if err := verr.orNil(); err != nil {
		return Filter{}, 0, err
	}
	return f, page, nil
}

func lookup(q url.Values, key string) (string, bool) {
	vals, ok := q[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

func queryLoc(name string) []string {
	return []string{"query", name}
}

// parseQueryBool принимает привычные формы булевых значений в query-строке.
func parseQueryBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on", "t", "y":
		return true, nil
	case "false", "0", "no", "off", "f", "n":
		return false, nil
	default:
		return false, strconv.ErrSyntax
	}
}
