package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLQL_Columns(t *testing.T) {
	req := Request{
		Table:   "hosts",
		Columns: []string{"name", "state"},
		Filter:  "Filter: host_name ~~ web",
	}

	assert.Equal(t, "GET hosts\nColumns: name state\nFilter: host_name ~~ web\n", req.LQL())
	assert.Equal(t, 2, req.Arity())

	req.PrependSite = true
	assert.Equal(t, 3, req.Arity())
}

func TestRequestLQL_StatsPostfix(t *testing.T) {
	req := Request{
		Table: "hosts",
		Stats: []Expr{
			C("scheduled_downtime_depth", OpGt, 0),
			And(Or(C("state", OpEq, 1), C("worst_service_state", OpEq, 2)), C("scheduled_downtime_depth", OpEq, 0)),
		},
	}

	want := "GET hosts\n" +
		"Stats: scheduled_downtime_depth > 0\n" +
		"Stats: state = 1\n" +
		"Stats: worst_service_state = 2\n" +
		"StatsOr: 2\n" +
		"Stats: scheduled_downtime_depth = 0\n" +
		"StatsAnd: 2\n"
	assert.Equal(t, want, req.LQL())
	assert.Equal(t, 2, req.Arity())
}

func TestExprEval(t *testing.T) {
	e := And(Or(C("state", OpEq, 1), C("worst_service_state", OpEq, 2)), C("scheduled_downtime_depth", OpEq, 0))

	ok, err := e.Eval(Values{"state": 0, "worst_service_state": 2, "scheduled_downtime_depth": 0})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Eval(Values{"state": 1, "worst_service_state": 0, "scheduled_downtime_depth": 3})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = C("missing", OpEq, 1).Eval(Values{})
	assert.Error(t, err)
}
