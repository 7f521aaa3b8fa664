package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/site-overview/internal/console/handler"
	"github.com/xela07ax/site-overview/internal/domain"
	"go.uber.org/zap"
)

type fakeOverview struct {
	got  domain.OverviewRequest
	resp *domain.OverviewResponse
	err  error
}

func (f *fakeOverview) Generate(_ context.Context, req domain.OverviewRequest) (*domain.OverviewResponse, error) {
	f.got = req
	return f.resp, f.err
}

type fakeSites []domain.Site

func (f fakeSites) Sites(context.Context) ([]domain.Site, error) { return f, nil }

type fakeStates map[string]domain.SiteStatus

func (f fakeStates) States() map[string]domain.SiteStatus { return f }

type fakeValidator struct{}

func (fakeValidator) VerifyToken(token string) (*domain.CustomClaims, error) {
	if token != "Bearer good" {
		return nil, errors.New("bad token")
	}
	return &domain.CustomClaims{UserID: "u", Scopes: map[string]bool{domain.ScopeOverviewRead: true}}, nil
}

func newTestServer(svc handler.OverviewService, validator *fakeValidator) *OverviewServer {
	logger := zap.NewNop()
	sitesH := handler.NewSitesHandler(
		fakeSites{{ID: "muc", Alias: "Munich"}, {ID: "ber", Alias: "Berlin"}},
		fakeStates{"muc": {SiteID: "muc", State: domain.SiteOnline}},
	)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) })
	if validator == nil {
		return NewOverviewServer(logger, nil, metrics, handler.NewOverviewHandler(svc, logger), sitesH)
	}
	return NewOverviewServer(logger, validator, metrics, handler.NewOverviewHandler(svc, logger), sitesH)
}

func do(s http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestOverview_GetBuildsContext(t *testing.T) {
	svc := &fakeOverview{resp: &domain.OverviewResponse{
		Title:           "Host overview",
		RenderMode:      domain.RenderHosts,
		PlotDefinitions: []any{},
		Data:            []domain.Element{domain.HostElement{Title: "a-host", HostCSSClass: "up"}},
	}}
	s := newTestServer(svc, nil)

	rec := do(s, http.MethodGet, "/api/v1/overview?site=muc&host=web", "", map[string]string{"X-Trace-ID": "trace-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "trace-1", rec.Header().Get("X-Trace-ID"))
	assert.Equal(t, "muc", svc.got.Context.Get("site", "site"))
	assert.Equal(t, "web", svc.got.Context.Get("hostregex", "host_regex"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "hosts", body["render_mode"])
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "host_element", data[0].(map[string]any)["type"])
}

func TestOverview_Post(t *testing.T) {
	svc := &fakeOverview{resp: &domain.OverviewResponse{RenderMode: domain.RenderSites, Data: []domain.Element{}}}
	s := newTestServer(svc, nil)

	rec := do(s, http.MethodPost, "/api/v1/overview",
		`{"context":{"site":{"site":"ber"}},"settings":{"title":"$SITE$"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ber", svc.got.Context.Get("site", "site"))
	assert.Equal(t, "$SITE$", svc.got.Settings.Title)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))

	rec = do(s, http.MethodPost, "/api/v1/overview", `{broken`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOverview_ErrorMapping(t *testing.T) {
	svc := &fakeOverview{err: &domain.UnknownStateError{Field: "state", Value: 9}}
	rec := do(newTestServer(svc, nil), http.MethodGet, "/api/v1/overview", "", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown state value: 9")

	svc = &fakeOverview{err: errors.New("registry down")}
	rec = do(newTestServer(svc, nil), http.MethodGet, "/api/v1/overview", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "registry down")
}

func TestOverview_HostTooltip(t *testing.T) {
	s := newTestServer(&fakeOverview{}, nil)

	rec := do(s, http.MethodGet, "/api/v1/overview/host-tooltip?title=web01&host_css_class=up&service_css_class=critical&num_services=4&num_problems=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["host_tooltip"], "problem services (worst state: critical)")

	rec = do(s, http.MethodGet, "/api/v1/overview/host-tooltip?title=web01", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(s, http.MethodGet, "/api/v1/overview/host-tooltip?title=a&host_css_class=up&service_css_class=ok&num_services=x&num_problems=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSites_List(t *testing.T) {
	rec := do(newTestServer(&fakeOverview{}, nil), http.MethodGet, "/api/v1/sites", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "online", body[0]["state"])
	assert.Equal(t, "missing", body[1]["state"])
}

func TestAuthAndPublicRoutes(t *testing.T) {
	svc := &fakeOverview{resp: &domain.OverviewResponse{Data: []domain.Element{}}}
	s := newTestServer(svc, &fakeValidator{})

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, "# metrics", do(s, http.MethodGet, "/metrics", "", nil).Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(s, http.MethodGet, "/api/v1/overview", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(s, http.MethodGet, "/api/v1/overview", "", map[string]string{"Authorization": "Bearer bad"}).Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/api/v1/overview", "", map[string]string{"Authorization": "Bearer good"}).Code)
}
