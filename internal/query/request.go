package query

import (
	"context"
	"fmt"
	"strings"
)

// Row — одна строка табличного ответа; значения выровнены по запрошенным колонкам.
type Row []any

// Request — явный объект параметров одного запроса.
// Никаких флагов на общем соединении: "только эти сайты" и "добавить site в начало"
// передаются здесь и живут ровно один вызов.
type Request struct {
	Table       string
	Columns     []string
	Filter      string // готовые заголовки "Filter: ..." от резолвера контекста
	Stats       []Expr
	OnlySites   []string
	PrependSite bool
}

// Service — Tabular Query Service одного сайта.
type Service interface {
	Query(ctx context.Context, req Request) ([]Row, error)
}

// StatsCapable реализуют бэкенды, умеющие считать Stats на своей стороне (pushdown).
type StatsCapable interface {
	SupportsStats() bool
}

// Pinger — дешевая проверка связности для Site Reachability Provider.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SupportsStats безопасно проверяет возможность pushdown у произвольного сервиса.
func SupportsStats(s Service) bool {
	sc, ok := s.(StatsCapable)
	return ok && sc.SupportsStats()
}

// Arity — сколько колонок должно прийти в каждой строке ответа.
func (r Request) Arity() int {
	n := len(r.Columns)
	if len(r.Stats) > 0 {
		n = len(r.Stats)
	}
	if r.PrependSite {
		n++
	}
	return n
}

// LQL рендерит запрос в текст Livestatus Query Language (без заголовков транспорта).
func (r Request) LQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "GET %s\n", r.Table)
	if len(r.Columns) > 0 && len(r.Stats) == 0 {
		fmt.Fprintf(&b, "Columns: %s\n", strings.Join(r.Columns, " "))
	}
	if f := strings.TrimSpace(r.Filter); f != "" {
		b.WriteString(f)
		b.WriteString("\n")
	}
	lines := make([]string, 0, len(r.Stats)*3)
	for _, e := range r.Stats {
		lines = e.lql(lines)
	}
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	return b.String()
}
