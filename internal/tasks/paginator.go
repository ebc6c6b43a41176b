package tasks

import (
	"math"
	"strconv"
)

// DefaultPageSize - размер страницы списка задач, если в конфиге не задан другой.
const DefaultPageSize = 5

// Page описывает запрошенную страницу отфильтрованного списка.
//
// Number - номер страницы с единицы, Size - размер страницы,
// Total - сколько всего задач подходит под фильтр.
type Page struct {
	Number int
	Size   int
	Total  int64
}

// NewPage создаёт описание страницы. Номер не сверяется с последней
// страницей: запрос "за край" просто вернёт пустой список.
func NewPage(number, size int, total int64) Page {
	if size < 1 {
		size = DefaultPageSize
	}
	return Page{Number: number, Size: size, Total: total}
}

// Offset - сколько записей пропустить. Для огромных номеров страниц
// результат насыщается до math.MaxInt, а не переполняется.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Size
}

// Limit - сколько записей выбрать.
func (p Page) Limit() int {
	return p.Size
}

// Empty - под фильтр не попала ни одна задача.
func (p Page) Empty() bool {
	return p.Total == 0
}

// BeyondLast - страница дальше последней, на ней заведомо нет записей.
func (p Page) BeyondLast() bool {
	return p.Number > p.Last()
}

// Last - номер последней страницы, на которой есть записи (0, если записей нет).
func (p Page) Last() int {
	size := int64(p.Size)
	full, rem := p.Total/size, p.Total%size
	if rem > 0 {
		return int(full) + 1
	}
	return int(full)
}

// HasNext - ссылка вперёд есть всегда, кроме последней страницы с записями.
// Со страницы "за краем" ссылка тоже ведёт дальше.
func (p Page) HasNext() bool {
	return !p.Empty() && p.Number != p.Last() && p.Number < math.MaxInt
}

// HasPrev - есть ли предыдущая страница. Для пустого результата ссылок нет вообще.
func (p Page) HasPrev() bool {
	return !p.Empty() && p.Number > 1
}

// NextURL - ссылка на следующую страницу с теми же фильтрами или nil.
func (p Page) NextURL(path string, f Filter) *string {
	if !p.HasNext() {
		return nil
	}
	return pageURL(path, f, p.Number+1)
}

// PrevURL - ссылка на предыдущую страницу с теми же фильтрами или nil.
func (p Page) PrevURL(path string, f Filter) *string {
	if !p.HasPrev() {
		return nil
	}
	return pageURL(path, f, p.Number-1)
}

func pageURL(path string, f Filter, number int) *string {
	v := f.Values()
	v.Set("page", strconv.Itoa(number))
	s := path + "?" + v.Encode()
	return &s
}
