package handler

import (
	"context"
	"net/http"

	"github.com/xela07ax/site-overview/internal/domain"
)

type SiteLister interface {
	Sites(ctx context.Context) ([]domain.Site, error)
}

type StateReader interface {
	States() map[string]domain.SiteStatus
}

type SitesHandler struct {
	sites  SiteLister
	states StateReader
}

func NewSitesHandler(sites SiteLister, states StateReader) *SitesHandler {
	return &SitesHandler{sites: sites, states: states}
}

type siteView struct {
	domain.Site
	State domain.Reachability `json:"state"`
}

// List — GET /api/v1/sites: реестр с последним известным состоянием (без новой проверки)
func (h *SitesHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.sites.Sites(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sites")
		return
	}

	states := h.states.States()
	out := make([]siteView, 0, len(list))
	for _, s := range list {
		state := domain.SiteMissing
		if st, ok := states[s.ID]; ok {
			state = st.State
		}
		out = append(out, siteView{Site: s, State: state})
	}
	writeJSON(w, http.StatusOK, out)
}
