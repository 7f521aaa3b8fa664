package overview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/site-overview/internal/domain"
)

func TestCategories_OrderAndTotal(t *testing.T) {
	parts, total := Categories(domain.SiteStats{InDowntime: 1, DownOrCritical: 2, UnreachableOrUnknown: 3, UpWithWarning: 4, UpOK: 5})

	require.Len(t, parts, 5)
	assert.Equal(t, "downtime", parts[0].CSSClass)
	assert.Equal(t, "hosts are in scheduled downtime", parts[0].Title)
	assert.Equal(t, "critical", parts[1].CSSClass)
	assert.Equal(t, "unknown", parts[2].CSSClass)
	assert.Equal(t, "warning", parts[3].CSSClass)
	assert.Equal(t, "ok", parts[4].CSSClass)
	assert.Equal(t, 15, total.Count)
	assert.Empty(t, total.CSSClass)
}

func TestRenderSiteTooltip_Escapes(t *testing.T) {
	parts, total := Categories(domain.SiteStats{UpOK: 2})
	html := RenderSiteTooltip("<b>evil</b>", parts, total)

	assert.Contains(t, html, "<h3>&lt;b&gt;evil&lt;/b&gt;</h3>")
	assert.Contains(t, html, `<td class="color ok"></td><td class="count">2</td>`)
	assert.Contains(t, html, `<td class="count">2</td><td class="title">Total number of hosts</td>`)
}

func TestRenderHostTooltip(t *testing.T) {
	tests := []struct {
		name     string
		req      domain.HostTooltipRequest
		contains []string
		absent   []string
	}{
		{
			name:     "downtime host has no table",
			req:      domain.HostTooltipRequest{Title: "web01", HostCSSClass: "downtime", NumServices: 3},
			contains: []string{"<h3>web01</h3>", "Host is in downtime"},
			absent:   []string{"<table>"},
		},
		{
			name:     "down host",
			req:      domain.HostTooltipRequest{Title: "web01", HostCSSClass: "down"},
			contains: []string{"Host is down"},
			absent:   []string{"<table>"},
		},
		{
			name:     "single problem",
			req:      domain.HostTooltipRequest{Title: "db", HostCSSClass: "up", ServiceCSSClass: "warning", NumServices: 1, NumProblems: 1},
			contains: []string{"Host is up", "<td>service</td>", "service in warning state"},
		},
		{
			name:     "many problems",
			req:      domain.HostTooltipRequest{Title: "db", HostCSSClass: "up", ServiceCSSClass: "critical", NumServices: 7, NumProblems: 3},
			contains: []string{"<td>services</td>", "problem services (worst state: critical)"},
		},
		{
			name:     "no problems",
			req:      domain.HostTooltipRequest{Title: "db", HostCSSClass: "up", ServiceCSSClass: "ok", NumServices: 2},
			contains: []string{`<td class="count">0</td><td>problem services</td>`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := RenderHostTooltip(tt.req)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, html, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, html, s)
			}
		})
	}

	_, err := RenderHostTooltip(domain.HostTooltipRequest{NumProblems: -1})
	assert.Error(t, err)
}

func TestContextFilterResolver(t *testing.T) {
	r := ContextFilterResolver{}

	got, err := r.ResolveFilter("hosts", []string{"host"}, domain.VisualContext{
		"host":      {"host": "web01"},
		"hostregex": {"host_regex": "^web"},
		"hostgroup": {"hostgroup": "linux"},
		"hoststate": {"hst0": "", "hst1": "on", "hst2": "on"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Filter: host_name = web01\n"+
		"Filter: host_name ~~ ^web\n"+
		"Filter: host_groups >= linux\n"+
		"Filter: state = 1\nFilter: state = 2\nOr: 2", got)

	got, err = r.ResolveFilter("hosts", []string{"host"}, domain.VisualContext{"hoststate": {"hst0": "on", "hst1": "on", "hst2": "on"}})
	require.NoError(t, err)
	assert.Empty(t, got, "all states selected means no filter")

	got, err = r.ResolveFilter("services", []string{"service"}, domain.VisualContext{"host": {"host": "x"}})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = r.ResolveFilter("hosts", []string{"host"}, domain.VisualContext{"host": {"host": "x\nGET status"}})
	assert.Error(t, err)
}

func TestURLLinkBuilder(t *testing.T) {
	params := map[string]string{"view_name": "host", "site": "muc", "host": "a b&c"}

	assert.Equal(t, "view.py?host=a+b%26c&site=muc&view_name=host", URLLinkBuilder{}.BuildLink("view.py", params))
	assert.Equal(t, "/muc/check_mk/view.py?site=muc", URLLinkBuilder{BaseURL: "/muc/check_mk/"}.BuildLink("view.py", map[string]string{"site": "muc"}))
	assert.Equal(t, "index.py", URLLinkBuilder{}.BuildLink("index.py", nil))
}

func TestMacroTitleRenderer(t *testing.T) {
	r := MacroTitleRenderer{}
	macros := map[string]string{"$DEFAULT_TITLE$": "Host overview", "$SITE$": "muc", "$SITE_ALIAS$": "Munich"}

	assert.Equal(t, "Host overview: Munich (muc)", r.RenderTitle("$DEFAULT_TITLE$: $SITE_ALIAS$ ($SITE$)", macros))
	assert.Equal(t, "plain", r.RenderTitle("plain", macros))
	assert.Equal(t, "$HOST$ stays", r.RenderTitle("$HOST$ stays", macros))
}
