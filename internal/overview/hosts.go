package overview

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/xela07ax/site-overview/internal/classify"
	"github.com/xela07ax/site-overview/internal/domain"
	"github.com/xela07ax/site-overview/internal/engine"
	"go.uber.org/zap"
)

// collectHosts — режим одного сайта: хосты по имени, каждый классифицирован
func (g *Generator) collectHosts(ctx context.Context, site domain.Site, found bool, siteID string, vctx domain.VisualContext) ([]domain.Element, error) {
	titles := g.deps.Reach.StateTitles()

	if !found {
		g.logger.Warn("requested site is not configured",
			zap.String("trace_id", engine.TraceID(ctx)), zap.String("site_id", siteID))
		return []domain.Element{iconElement(siteID, domain.SiteMissing, titles)}, nil
	}
	if site.Disabled {
		return []domain.Element{iconElement(site.Alias, domain.SiteDisabled, titles)}, nil
	}

	filter, err := g.deps.Filters.ResolveFilter("hosts", []string{"host"}, vctx)
	if err != nil {
		return nil, fmt.Errorf("overview: resolve filter: %w", err)
	}

	hosts, err := g.hostStatuses(ctx, site, filter)
	if err != nil {
		if g.loud(err) {
			return nil, fmt.Errorf("overview: site %s: %w", site.ID, err)
		}
		if engine.Aborted(ctx, err) {
			return nil, fmt.Errorf("overview: site %s: %w", site.ID, err)
		}
		failure := &domain.QueryFailure{SiteID: site.ID, Err: err}
		fallback := g.fallbackState(ctx, site.ID, failure)
		g.logger.Warn("host query failed",
			zap.String("trace_id", engine.TraceID(ctx)),
			zap.String("site_id", site.ID),
			zap.String("fallback", string(fallback)),
			zap.Error(err))
		return []domain.Element{iconElement(site.Alias, fallback, titles)}, nil
	}

	names := make([]string, 0, len(hosts))
	for name := range hosts {
		names = append(names, name)
	}
	slices.SortFunc(names, strings.Compare)

	elements := make([]domain.Element, 0, len(names))
	for _, name := range names {
		h := hosts[name]
		hostClass, err := classify.HostCSSClass(h)
		if err != nil {
			return nil, fmt.Errorf("overview: host %s: %w", name, err)
		}
		elements = append(elements, domain.HostElement{
			Title: name,
			Link: g.deps.Links.BuildLink("view.py", map[string]string{
				"host":      name,
				"site":      site.ID,
				"view_name": "host",
			}),
			HostCSSClass:    hostClass,
			ServiceCSSClass: classify.ServiceCSSClass(h),
			HasHostProblem:  classify.HasProblem(h),
			NumServices:     h.NumServices,
			NumProblems:     h.NumProblems(),
			Tooltip:         "", // подгружается по hover через host-tooltip
		})
	}
	return elements, nil
}

func (g *Generator) hostStatuses(ctx context.Context, site domain.Site, filter string) (map[string]domain.HostStatus, error) {
	svc, err := g.deps.Backends.Service(site)
	if err != nil {
		return nil, err
	}
	rows, err := svc.Query(ctx, classify.HostStatusRequest(site.ID, filter))
	if err != nil {
		return nil, err
	}
	return g.deps.Decoder.DecodeHostRows(rows)
}
