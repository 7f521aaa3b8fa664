package query

import "fmt"

// Op — оператор сравнения в условии Stats/Filter.
type Op string

const (
	OpEq  Op = "="
	OpNeq Op = "!="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLt  Op = "<"
	OpLte Op = "<="
)

// Values — значения колонок одной строки для локального вычисления выражений.
type Values map[string]int

// Expr — дерево булевой алгебры над колонками.
// Одно и то же дерево умеет отрисоваться в LQL (pushdown) и посчитаться локально,
// поэтому приоритеты корзин описаны ровно в одном месте.
type Expr interface {
	Eval(v Values) (bool, error)
	lql(lines []string) []string
}

// Cond — атомарное условие "column op value"
type Cond struct {
	Column string
	Op     Op
	Value  int
}

func C(column string, op Op, value int) Cond {
	return Cond{Column: column, Op: op, Value: value}
}

func (c Cond) Eval(v Values) (bool, error) {
	got, ok := v[c.Column]
	if !ok {
		return false, fmt.Errorf("query: column %q is missing", c.Column)
	}
	switch c.Op {
	case OpEq:
		return got == c.Value, nil
	case OpNeq:
		return got != c.Value, nil
	case OpGt:
		return got > c.Value, nil
	case OpGte:
		return got >= c.Value, nil
	case OpLt:
		return got < c.Value, nil
	case OpLte:
		return got <= c.Value, nil
	default:
		return false, fmt.Errorf("query: unsupported operator %q", c.Op)
	}
}

func (c Cond) lql(lines []string) []string {
	return append(lines, fmt.Sprintf("Stats: %s %s %d", c.Column, c.Op, c.Value))
}

type andExpr []Expr

type orExpr []Expr

// And — конъюнкция, в LQL превращается в "StatsAnd: n" после операндов.
func And(items ...Expr) Expr { return andExpr(items) }

// Or — дизъюнкция, "StatsOr: n".
func Or(items ...Expr) Expr { return orExpr(items) }

func (a andExpr) Eval(v Values) (bool, error) {
	for _, e := range a {
		ok, err := e.Eval(v)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (a andExpr) lql(lines []string) []string {
	for _, e := range a {
		lines = e.lql(lines)
	}
	return append(lines, fmt.Sprintf("StatsAnd: %d", len(a)))
}

func (o orExpr) Eval(v Values) (bool, error) {
	for _, e := range o {
		ok, err := e.Eval(v)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (o orExpr) lql(lines []string) []string {
	for _, e := range o {
		lines = e.lql(lines)
	}
	return append(lines, fmt.Sprintf("StatsOr: %d", len(o)))
}
