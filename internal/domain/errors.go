package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSiteNotFound сайт не описан в реестре
	ErrSiteNotFound = errors.New("site not found")
	// ErrNoBackend для сайта нет транспорта (например, отключен)
	ErrNoBackend = errors.New("no query backend for site")
)

// MalformedRowError — строка ответа не соответствует контракту колонок.
type MalformedRowError struct {
	Index  int    // номер строки в ответе
	Want   int    // ожидаемое количество колонок
	Got    int    // фактическое
	Reason string // уточнение для битых значений и дублей
}

func (e *MalformedRowError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("malformed row %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("malformed row %d: expected %d columns, got %d", e.Index, e.Want, e.Got)
}

// UnknownStateError — значение перечисления вне допустимого диапазона.
// Угадывать корзину нельзя: неверная корзина ломает разбиение.
type UnknownStateError struct {
	Field string
	Value any
}

func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("unknown %s value: %v", e.Field, e.Value)
}

// QueryFailure — сетевая/бэкенд ошибка конкретного сайта. Наружу не уходит,
// агрегатор превращает ее в IconElement.
type QueryFailure struct {
	SiteID string
	Err    error
}

func (e *QueryFailure) Error() string {
	return fmt.Sprintf("query to site %s failed: %v", e.SiteID, e.Err)
}

func (e *QueryFailure) Unwrap() error { return e.Err }

// IsLoud отличает ошибки, которые обязаны прервать запрос, от деградации сайта.
func IsLoud(err error) bool {
	var unknown *UnknownStateError
	var malformed *MalformedRowError
	return errors.As(err, &unknown) || errors.As(err, &malformed)
}
