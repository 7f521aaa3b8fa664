package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/site-overview/internal/domain"
	"github.com/xela07ax/site-overview/internal/infra"
	"go.uber.org/zap"
)

func TestBuild_MockSitesEndToEnd(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "muc.json")
	require.NoError(t, os.WriteFile(fixture, []byte(`[
		{"name":"b-host","state":0,"num_services":3,"num_services_warn":1},
		{"name":"a-host","state":1,"num_services":2,"num_services_crit":1},
		{"name":"c-host","state":0,"scheduled_downtime_depth":1}
	]`), 0o600))

	cfg := &infra.Config{
		Engine:   infra.EngineConfig{FanoutLimit: 2},
		Overview: infra.OverviewConfig{DecodeMode: "strict"},
		Sites: []domain.Site{
			{ID: "muc", Alias: "Munich", Address: fixture, Transport: domain.TransportMock},
			{ID: "ber", Alias: "Berlin", Address: filepath.Join(dir, "absent.json"), Transport: domain.TransportMock},
			{ID: "ham", Alias: "Hamburg", Disabled: true},
		},
	}

	a, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	resp, err := a.Generator.Generate(context.Background(), domain.OverviewRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Data, 3)

	assert.Equal(t, "site_dead", resp.Data[0].(domain.IconElement).CSSClass, "Berlin has no fixture")
	assert.Equal(t, "site_disabled", resp.Data[1].(domain.IconElement).CSSClass)
	munich := resp.Data[2].(domain.SiteElement)
	assert.Equal(t, 3, munich.Total.Count)

	resp, err = a.Generator.Generate(context.Background(), domain.OverviewRequest{
		Context: domain.VisualContext{"site": {"site": "muc"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Data, 3)
	assert.Equal(t, "a-host", resp.Data[0].(domain.HostElement).Title)
	assert.Equal(t, "downtime", resp.Data[2].(domain.HostElement).HostCSSClass)
}

func TestBuild_RejectsBadDecodeMode(t *testing.T) {
	_, err := Build(context.Background(), &infra.Config{Overview: infra.OverviewConfig{DecodeMode: "sloppy"}}, zap.NewNop())
	assert.Error(t, err)
}

func TestBuild_CancelledRequestKeepsReachability(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "muc.json")
	require.NoError(t, os.WriteFile(fixture, []byte(`[{"name":"a-host","state":0,"num_services":1}]`), 0o600))

	cfg := &infra.Config{
		Engine:   infra.EngineConfig{FanoutLimit: 2},
		Overview: infra.OverviewConfig{DecodeMode: "strict"},
		Sites:    []domain.Site{{ID: "muc", Alias: "Munich", Address: fixture, Transport: domain.TransportMock}},
	}
	a, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Reach.RefreshDeadSites(context.Background()))
	before := a.Reach.States()
	require.Equal(t, domain.SiteOnline, before["muc"].State)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Generator.Generate(ctx, domain.OverviewRequest{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, a.Reach.States())
}
