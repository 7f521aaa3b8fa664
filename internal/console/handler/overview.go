package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/xela07ax/site-overview/internal/domain"
	"github.com/xela07ax/site-overview/internal/engine"
	"github.com/xela07ax/site-overview/internal/infra/auth"
	"github.com/xela07ax/site-overview/internal/overview"
	"go.uber.org/zap"
)

// OverviewService Описываем, что нам нужно от генератора
type OverviewService interface {
	Generate(ctx context.Context, req domain.OverviewRequest) (*domain.OverviewResponse, error)
}

type OverviewHandler struct {
	service OverviewService
	logger  *zap.Logger
}

func NewOverviewHandler(s OverviewService, logger *zap.Logger) *OverviewHandler {
	return &OverviewHandler{service: s, logger: logger.Named("overview-handler")}
}

// Get — GET /api/v1/overview?site=<id>&host=<regex>
func (h *OverviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := domain.OverviewRequest{
		Context: domain.VisualContext{},
		Settings: domain.Settings{
			Title:    q.Get("title"),
			TitleURL: q.Get("title_url"),
		},
	}
	if site := q.Get("site"); site != "" {
		req.Context["site"] = map[string]string{"site": site}
	}
	if host := q.Get("host"); host != "" {
		req.Context["hostregex"] = map[string]string{"host_regex": host}
	}
	h.respond(w, r, req)
}

// Post — POST /api/v1/overview с полным контекстом дашборда
func (h *OverviewHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req domain.OverviewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.respond(w, r, req)
}

func (h *OverviewHandler) respond(w http.ResponseWriter, r *http.Request, req domain.OverviewRequest) {
	logger := h.logger.With(zap.String("trace_id", engine.TraceID(r.Context())))
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		logger = logger.With(zap.String("user_id", claims.UserID))
	}

	resp, err := h.service.Generate(r.Context(), req)
	if err != nil && r.Context().Err() != nil {
		// Клиент ушел, отвечать некому
		logger.Debug("overview request abandoned", zap.Error(err))
		return
	}
	if err != nil {
		code := http.StatusInternalServerError
		msg := "failed to build overview"
		// Битые данные монитора — конкретная ошибка, а не общий сбой
		if domain.IsLoud(err) {
			code = http.StatusBadGateway
			msg = err.Error()
		}
		logger.Error("overview request failed",
			zap.Int("code", code),
			zap.Error(err))
		writeError(w, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HostTooltip — GET /api/v1/overview/host-tooltip, подсказка хоста по hover
func (h *OverviewHandler) HostTooltip(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	for _, key := range []string{"title", "host_css_class", "service_css_class", "num_services", "num_problems"} {
		if !q.Has(key) {
			writeError(w, http.StatusBadRequest, key+" is required")
			return
		}
	}

	numServices, err1 := strconv.Atoi(q.Get("num_services"))
	numProblems, err2 := strconv.Atoi(q.Get("num_problems"))
	if err := errors.Join(err1, err2); err != nil {
		writeError(w, http.StatusBadRequest, "num_services and num_problems must be integers")
		return
	}

	html, err := overview.RenderHostTooltip(domain.HostTooltipRequest{
		Title:           q.Get("title"),
		HostCSSClass:    q.Get("host_css_class"),
		ServiceCSSClass: q.Get("service_css_class"),
		NumServices:     numServices,
		NumProblems:     numProblems,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"host_tooltip": html})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
