package overview

import (
	"context"
	"errors"
	"fmt"

	"github.com/xela07ax/site-overview/internal/classify"
	"github.com/xela07ax/site-overview/internal/domain"
	"github.com/xela07ax/site-overview/internal/engine"
	"github.com/xela07ax/site-overview/internal/query"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// collectSites — режим флота. Порядок вывода задает list (alias, id), а не порядок ответов.
func (g *Generator) collectSites(ctx context.Context, list []domain.Site) ([]domain.Element, error) {
	// 1. Сначала обновляем мертвые сайты, потом читаем состояния
	if err := g.deps.Reach.RefreshDeadSites(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("overview: %w", ctx.Err())
		}
		g.logger.Warn("dead site refresh failed, using cached states",
			zap.String("trace_id", engine.TraceID(ctx)), zap.Error(err))
	}
	states := g.deps.Reach.States()
	titles := g.deps.Reach.StateTitles()

	elements := make([]domain.Element, len(list))
	loud := make([]error, len(list))

	// 2. Fan-out по онлайн-сайтам. Group без контекста: падение одного не отменяет соседей.
	var eg errgroup.Group
	eg.SetLimit(g.opts.FanoutLimit)

	for i, site := range list {
		state := domain.SiteMissing
		if st, ok := states[site.ID]; ok && st.State != "" {
			state = st.State
		}
		if state != domain.SiteOnline {
			elements[i] = iconElement(site.Alias, state, titles)
			continue
		}

		eg.Go(func() error {
			stats, err := g.siteStats(ctx, site)
			if err != nil {
				if g.loud(err) {
					loud[i] = fmt.Errorf("overview: site %s: %w", site.ID, err)
					return nil
				}
				// Запрос брошен вызывающим: общий кэш состояний не трогаем
				if engine.Aborted(ctx, err) {
					return nil
				}
				failure := &domain.QueryFailure{SiteID: site.ID, Err: err}
				fallback := g.fallbackState(ctx, site.ID, failure)
				g.logger.Warn("site query failed",
					zap.String("trace_id", engine.TraceID(ctx)),
					zap.String("site_id", site.ID),
					zap.String("fallback", string(fallback)),
					zap.Error(err))
				elements[i] = iconElement(site.Alias, fallback, titles)
				return nil
			}
			elements[i] = siteElement(site, stats)
			return nil
		})
	}
	_ = eg.Wait()

	if err := errors.Join(loud...); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}
	return elements, nil
}

// siteStats считает пять корзин: pushdown на бэкенд, если умеет, иначе локально
func (g *Generator) siteStats(ctx context.Context, site domain.Site) (domain.SiteStats, error) {
	svc, err := g.deps.Backends.Service(site)
	if err != nil {
		return domain.SiteStats{}, err
	}

	if query.SupportsStats(svc) {
		req := classify.SiteStatsRequest()
		req.OnlySites = []string{site.ID}
		req.PrependSite = true

		rows, err := svc.Query(ctx, req)
		if err != nil {
			return domain.SiteStats{}, err
		}
		return g.deps.Decoder.DecodeSiteStats(req, rows)
	}

	req := classify.BucketFactsRequest()
	req.OnlySites = []string{site.ID}
	rows, err := svc.Query(ctx, req)
	if err != nil {
		return domain.SiteStats{}, err
	}
	facts, err := g.deps.Decoder.DecodeBucketFacts(rows)
	if err != nil {
		return domain.SiteStats{}, err
	}
	return classify.CountBuckets(facts)
}

func siteElement(site domain.Site, stats domain.SiteStats) domain.SiteElement {
	parts, total := Categories(stats)
	return domain.SiteElement{
		Title:      site.Alias,
		Tooltip:    RenderSiteTooltip(site.Alias, parts, total),
		URLAddVars: map[string]string{"name": "site", "site": site.ID},
		Parts:      parts,
		Total:      total,
	}
}
