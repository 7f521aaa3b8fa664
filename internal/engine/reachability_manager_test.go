package engine

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/site-overview/internal/connectors"
	"github.com/xela07ax/site-overview/internal/domain"
	"go.uber.org/zap"
)

type staticSites []domain.Site

func (s staticSites) Sites(context.Context) ([]domain.Site, error) { return s, nil }

type memStore struct {
	mu        sync.Mutex
	states    map[string]string
	published []string
}

func (s *memStore) Load(context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.states))
	for k, v := range s.states {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) Publish(_ context.Context, siteID string, state domain.Reachability) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states == nil {
		s.states = map[string]string{}
	}
	s.states[siteID] = string(state)
	s.published = append(s.published, siteID+":"+string(state))
	return nil
}

func (s *memStore) Warmup(ctx context.Context, states map[string]domain.Reachability) error {
	for id, st := range states {
		_ = s.Publish(ctx, id, st)
	}
	return nil
}

func (s *memStore) StartListener(context.Context, func() error, func(string, string)) {}

func mockPool(t *testing.T, sites map[string]*connectors.MockSite) *BackendPool {
	t.Helper()
	factory := func(site domain.Site) (connectors.Service, error) {
		m, ok := sites[site.ID]
		if !ok {
			return nil, errors.New("no fixture")
		}
		return m, nil
	}
	return NewBackendPool(factory, ReliabilityOptions{}, nil, zap.NewNop())
}

func TestReachabilityManager_RefreshDeadSites(t *testing.T) {
	sites := staticSites{
		{ID: "muc", Alias: "Munich"},
		{ID: "ber", Alias: "Berlin"},
		{ID: "ham", Alias: "Hamburg", Disabled: true},
		{ID: "fra", Alias: "Frankfurt"},
		{ID: "nue", Alias: "Nuremberg"},
	}
	pool := mockPool(t, map[string]*connectors.MockSite{
		"muc": {SiteID: "muc"},
		"ber": {SiteID: "ber", Err: syscall.ECONNREFUSED},
		"nue": {SiteID: "nue", Err: syscall.EHOSTUNREACH},
	})
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	store := &memStore{}

	m := NewReachabilityManager(sites, pool, store, 2, metrics, zap.NewNop())
	require.NoError(t, m.RefreshDeadSites(context.Background()))

	states := m.States()
	assert.Equal(t, domain.SiteOnline, states["muc"].State)
	assert.Equal(t, "Munich", states["muc"].Alias)
	assert.Equal(t, domain.SiteDown, states["ber"].State)
	assert.Equal(t, domain.SiteDisabled, states["ham"].State)
	assert.Equal(t, domain.SiteDead, states["fra"].State, "no transport means dead")
	assert.Equal(t, domain.SiteUnreach, states["nue"].State)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SiteOnline.WithLabelValues("muc")))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.SiteOnline.WithLabelValues("ber")))
	assert.Len(t, store.published, 5)

	// Повторная проверка без изменений ничего не публикует
	require.NoError(t, m.RefreshDeadSites(context.Background()))
	assert.Len(t, store.published, 5)
}

func TestReachabilityManager_ReportQueryFailure(t *testing.T) {
	sites := staticSites{{ID: "muc", Alias: "Munich"}}
	pool := mockPool(t, map[string]*connectors.MockSite{"muc": {SiteID: "muc"}})
	store := &memStore{}
	m := NewReachabilityManager(sites, pool, store, 1, nil, zap.NewNop())
	require.NoError(t, m.RefreshDeadSites(context.Background()))

	state := m.ReportQueryFailure(context.Background(), "muc", context.DeadlineExceeded)
	assert.Equal(t, domain.SiteDead, state)
	assert.Equal(t, domain.SiteDead, m.States()["muc"].State)
	assert.Equal(t, "dead", store.states["muc"])

	assert.Equal(t, domain.SiteMissing, m.ReportQueryFailure(context.Background(), "nowhere", errors.New("x")))
}

func TestReachabilityManager_InitFromStore(t *testing.T) {
	sites := staticSites{{ID: "muc", Alias: "Munich"}, {ID: "ber", Alias: "Berlin"}}
	store := &memStore{states: map[string]string{"muc": "online", "ber": "bogus", "gone": "dead"}}
	m := NewReachabilityManager(sites, mockPool(t, nil), store, 1, nil, zap.NewNop())

	require.NoError(t, m.Init(context.Background()))
	states := m.States()
	assert.Len(t, states, 1)
	assert.Equal(t, domain.SiteOnline, states["muc"].State)

	m.apply("ber", "unreach")
	m.apply("ber", "nonsense")
	assert.Equal(t, domain.SiteUnreach, m.States()["ber"].State)
}

func TestReachabilityManager_StatesIsACopy(t *testing.T) {
	m := NewReachabilityManager(staticSites{{ID: "muc"}}, mockPool(t, map[string]*connectors.MockSite{"muc": {SiteID: "muc"}}), nil, 1, nil, zap.NewNop())
	require.NoError(t, m.RefreshDeadSites(context.Background()))

	states := m.States()
	delete(states, "muc")
	assert.Contains(t, m.States(), "muc")
}

func TestParseSignal(t *testing.T) {
	id, state, ok := ParseSignal("site:a:online")
	require.True(t, ok)
	assert.Equal(t, "site:a", id)
	assert.Equal(t, "online", state)

	for _, bad := range []string{"", "online", ":online", "muc:"} {
		_, _, ok := ParseSignal(bad)
		assert.False(t, ok, bad)
	}
}

func TestStateForError(t *testing.T) {
	assert.Equal(t, domain.SiteDown, StateForError(errors.New("refused")))
	assert.Equal(t, domain.SiteUnreach, StateForError(syscall.ENETUNREACH))
	assert.Equal(t, domain.SiteDead, StateForError(context.DeadlineExceeded))
}

func TestReachabilityManager_CancelledRefreshKeepsStates(t *testing.T) {
	sites := staticSites{{ID: "muc", Alias: "Munich"}, {ID: "ber", Alias: "Berlin"}}
	pool := mockPool(t, map[string]*connectors.MockSite{
		"muc": {SiteID: "muc", Latency: 50 * time.Millisecond},
		"ber": {SiteID: "ber", Latency: 50 * time.Millisecond},
	})
	store := &memStore{}
	m := NewReachabilityManager(sites, pool, store, 2, nil, zap.NewNop())
	require.NoError(t, m.RefreshDeadSites(context.Background()))
	before := m.States()
	published := len(store.published)

	// Уже отмененный запрос
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, m.RefreshDeadSites(ctx), context.Canceled)

	// Клиент ушел посреди проверки
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, m.RefreshDeadSites(ctx), context.DeadlineExceeded)

	assert.Equal(t, before, m.States())
	assert.Equal(t, domain.SiteOnline, m.States()["muc"].State)
	assert.Len(t, store.published, published, "aborted refresh must not publish")
}

func TestReachabilityManager_AbortedQueryFailureIsIgnored(t *testing.T) {
	sites := staticSites{{ID: "muc", Alias: "Munich"}}
	pool := mockPool(t, map[string]*connectors.MockSite{"muc": {SiteID: "muc"}})
	store := &memStore{}
	m := NewReachabilityManager(sites, pool, store, 1, nil, zap.NewNop())
	require.NoError(t, m.RefreshDeadSites(context.Background()))
	published := len(store.published)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state := m.ReportQueryFailure(ctx, "muc", context.Canceled)
	assert.Equal(t, domain.SiteOnline, state)
	assert.Equal(t, domain.SiteOnline, m.States()["muc"].State)
	assert.Len(t, store.published, published)
}
