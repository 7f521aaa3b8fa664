package connectors

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/site-overview/internal/domain"
	"github.com/xela07ax/site-overview/internal/query"
)

func mockHosts() []domain.HostStatus {
	return []domain.HostStatus{
		{Name: "web01", State: domain.HostUp, NumServices: 5},
		{Name: "web02", State: domain.HostDown, NumServices: 3, NumServicesCrit: 1},
		{Name: "db01", State: domain.HostUp, ScheduledDowntimeDepth: 5},
	}
}

func TestMockSite_StatsPushdown(t *testing.T) {
	m := &MockSite{SiteID: "muc", Hosts: mockHosts(), Stats: true}

	rows, err := m.Query(context.Background(), query.Request{
		Table:       "hosts",
		Stats:       []query.Expr{query.C("scheduled_downtime_depth", query.OpGt, 0), query.C("state", query.OpEq, 0)},
		PrependSite: true,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, query.Row{"muc", 1, 2}, rows[0])
}

func TestMockSite_ColumnsAndFilter(t *testing.T) {
	m := &MockSite{SiteID: "muc", Hosts: mockHosts()}

	rows, err := m.Query(context.Background(), query.Request{
		Table:   "hosts",
		Columns: query.BucketFactColumns,
		Filter:  "Filter: host_name ~~ WEB",
	})
	require.NoError(t, err)
	assert.Equal(t, []query.Row{
		{"web01", 0, 0, 0},
		{"web02", 1, 2, 0},
	}, rows)

	rows, err = m.Query(context.Background(), query.Request{
		Table:   "hosts",
		Columns: []string{"name"},
		Filter:  "Filter: state = 1\nFilter: scheduled_downtime_depth > 0\nOr: 2",
	})
	require.NoError(t, err)
	assert.Equal(t, []query.Row{{"web02"}, {"db01"}}, rows)

	_, err = m.Query(context.Background(), query.Request{Table: "hosts", Filter: "Filter: host_groups >= linux"})
	var statusErr *StatusError
	assert.ErrorAs(t, err, &statusErr)

	_, err = m.Query(context.Background(), query.Request{Table: "hosts", Filter: "Or: 2"})
	assert.Error(t, err)
}

func TestMockSite_FailureAndLatency(t *testing.T) {
	boom := errors.New("connection refused")
	m := &MockSite{SiteID: "muc", Err: boom}
	_, err := m.Query(context.Background(), query.Request{Table: "hosts"})
	assert.ErrorIs(t, err, boom)

	slow := &MockSite{SiteID: "muc", Latency: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, slow.Ping(ctx), context.DeadlineExceeded)
}

func TestLoadMockSite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"a","state":1,"num_services":2}]`), 0o600))

	m, err := LoadMockSite("muc", path)
	require.NoError(t, err)
	require.Len(t, m.Hosts, 1)
	assert.Equal(t, domain.HostDown, m.Hosts[0].State)
	assert.True(t, m.SupportsStats())

	_, err = LoadMockSite("muc", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFactory_UnknownTransport(t *testing.T) {
	_, err := Factory{}.New(domain.Site{ID: "x", Transport: "carrier-pigeon"})
	assert.Error(t, err)
}
