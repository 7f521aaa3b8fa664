// Package overview собирает модель виджета "Site overview": сайты флота или хосты одного сайта.
package overview

import (
	"context"
	"errors"
	"fmt"

	"github.com/xela07ax/site-overview/internal/connectors"
	"github.com/xela07ax/site-overview/internal/domain"
	"github.com/xela07ax/site-overview/internal/engine"
	"github.com/xela07ax/site-overview/internal/query"
	"github.com/xela07ax/site-overview/internal/sites"
	"go.uber.org/zap"
)

const (
	DefaultHostsTitle = "Host overview"
	DefaultSitesTitle = "Site overview"
)

// SiteRegistry — реестр сайтов
type SiteRegistry interface {
	Sites(ctx context.Context) ([]domain.Site, error)
	Site(ctx context.Context, id string) (domain.Site, error)
}

// ReachabilityProvider — Site Reachability Provider (engine.ReachabilityManager)
type ReachabilityProvider interface {
	RefreshDeadSites(ctx context.Context) error
	States() map[string]domain.SiteStatus
	StateTitles() map[domain.Reachability]string
	ReportQueryFailure(ctx context.Context, siteID string, err error) domain.Reachability
}

// BackendProvider отдает Tabular Query Service сайта (engine.BackendPool)
type BackendProvider interface {
	Service(site domain.Site) (connectors.Service, error)
}

// FilterResolver превращает контекст дашборда в заголовки фильтра
type FilterResolver interface {
	ResolveFilter(table string, infos []string, ctx domain.VisualContext) (string, error)
}

// LinkBuilder строит ссылки навигации
type LinkBuilder interface {
	BuildLink(filename string, params map[string]string) string
}

// TitleRenderer раскрывает макросы заголовка
type TitleRenderer interface {
	RenderTitle(title string, macros map[string]string) string
}

type Options struct {
	FanoutLimit int
	Title       string // заголовок по умолчанию из конфига, может содержать макросы
	TitleURL    string
}

// Deps — внешние коллабораторы генератора
type Deps struct {
	Sites    SiteRegistry
	Reach    ReachabilityProvider
	Backends BackendProvider
	Decoder  *query.Decoder
	Filters  FilterResolver
	Links    LinkBuilder
	Titles   TitleRenderer
	Metrics  *engine.Metrics
}

// Generator — View Model Builder: выбирает режим и собирает ответ.
type Generator struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
}

func NewGenerator(deps Deps, opts Options, logger *zap.Logger) *Generator {
	if opts.FanoutLimit <= 0 {
		opts.FanoutLimit = 8
	}
	if deps.Decoder == nil {
		deps.Decoder = query.NewDecoder(query.Strict, logger)
	}
	if deps.Filters == nil {
		deps.Filters = ContextFilterResolver{}
	}
	if deps.Links == nil {
		deps.Links = URLLinkBuilder{}
	}
	if deps.Titles == nil {
		deps.Titles = MacroTitleRenderer{}
	}
	if deps.Metrics == nil {
		deps.Metrics = engine.NewMetrics(nil)
	}
	return &Generator{deps: deps, opts: opts, logger: logger.Named("overview")}
}

// Generate строит ответ виджета для контекста запроса
func (g *Generator) Generate(ctx context.Context, req domain.OverviewRequest) (resp *domain.OverviewResponse, err error) {
	mode := domain.RenderSites
	defer func() {
		status := "ok"
		switch {
		case err == nil:
		case ctx.Err() != nil:
			status = "aborted"
		default:
			status = "error"
		}
		g.deps.Metrics.OverviewResponses.WithLabelValues(string(mode), status).Inc()
	}()

	all, err := g.deps.Sites.Sites(ctx)
	if err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}
	all = sites.Sorted(all)

	// 1. Выбор режима: единственный локальный сайт, иначе фильтр site из контекста
	siteID := req.Context.Get("site", "site")
	local, single := sites.SingleLocalSite(all)
	if single {
		siteID = local.ID
	}

	var (
		elements     []domain.Element
		defaultTitle string
		macros       = map[string]string{}
	)

	// 2. Сбор элементов
	if siteID != "" {
		mode = domain.RenderHosts
		defaultTitle = DefaultHostsTitle
		site, found := local, single
		if !single {
			site, found, err = g.lookupSite(ctx, siteID)
			if err != nil {
				return nil, err
			}
		}
		macros["$SITE$"] = siteID
		macros["$SITE_ALIAS$"] = siteID
		if found {
			macros["$SITE_ALIAS$"] = site.Alias
		}
		elements, err = g.collectHosts(ctx, site, found, siteID, req.Context)
	} else {
		defaultTitle = DefaultSitesTitle
		elements, err = g.collectSites(ctx, all)
	}
	if err != nil && ctx.Err() != nil {
		g.logger.Debug("overview generation abandoned",
			zap.String("trace_id", engine.TraceID(ctx)), zap.Error(err))
		return nil, err
	}
	if err != nil {
		g.logger.Error("overview generation failed",
			zap.String("trace_id", engine.TraceID(ctx)),
			zap.String("render_mode", string(mode)),
			zap.Error(err))
		return nil, err
	}

	// 3. Заголовок: настройки виджета > конфиг > значение по умолчанию
	title := req.Settings.Title
	if title == "" {
		title = g.opts.Title
	}
	if title == "" {
		title = defaultTitle
	}
	macros["$DEFAULT_TITLE$"] = defaultTitle

	titleURL := req.Settings.TitleURL
	if titleURL == "" {
		titleURL = g.opts.TitleURL
	}

	if elements == nil {
		elements = []domain.Element{}
	}

	return &domain.OverviewResponse{
		Title:           g.deps.Titles.RenderTitle(title, macros),
		TitleURL:        titleURL,
		RenderMode:      mode,
		PlotDefinitions: []any{},
		Data:            elements,
	}, nil
}

// loud — ошибки, которые нельзя прятать за иконкой сайта.
// В lenient режиме битая строка статистики деградирует только свой сайт.
func (g *Generator) loud(err error) bool {
	var unknown *domain.UnknownStateError
	if errors.As(err, &unknown) {
		return true
	}
	var malformed *domain.MalformedRowError
	return errors.As(err, &malformed) && g.deps.Decoder.Mode() == query.Strict
}

// fallbackState — состояние для иконки упавшего сайта
func (g *Generator) fallbackState(ctx context.Context, siteID string, err error) domain.Reachability {
	state := g.deps.Reach.ReportQueryFailure(ctx, siteID, err)
	if state == "" || state == domain.SiteOnline {
		return domain.SiteMissing
	}
	return state
}

func iconElement(title string, state domain.Reachability, titles map[domain.Reachability]string) domain.IconElement {
	tooltip, ok := titles[state]
	if !ok {
		tooltip = titles[domain.SiteUnknown]
	}
	return domain.IconElement{Title: title, Tooltip: tooltip, CSSClass: state.CSSClass()}
}

func (g *Generator) lookupSite(ctx context.Context, id string) (domain.Site, bool, error) {
	site, err := g.deps.Sites.Site(ctx, id)
	switch {
	case errors.Is(err, domain.ErrSiteNotFound):
		return domain.Site{}, false, nil
	case err != nil:
		return domain.Site{}, false, fmt.Errorf("overview: %w", err)
	}
	return site, true, nil
}
