// Package app собирает зависимости сервиса из конфига (общий DI для cmd/overview и cmd/overviewctl).
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/site-overview/internal/connectors"
	"github.com/xela07ax/site-overview/internal/engine"
	"github.com/xela07ax/site-overview/internal/infra"
	"github.com/xela07ax/site-overview/internal/overview"
	"github.com/xela07ax/site-overview/internal/query"
	"github.com/xela07ax/site-overview/internal/repository/postgres"
	"github.com/xela07ax/site-overview/internal/sites"
	"go.uber.org/zap"
)

type App struct {
	Registry  *sites.Registry
	SiteRepo  *postgres.SiteRepo // nil, если сайты из конфига
	Pool      *engine.BackendPool
	Reach     *engine.ReachabilityManager
	Generator *overview.Generator
	Metrics   *engine.Metrics
	Prom      *prometheus.Registry

	closers []func() error
}

// Build поднимает ресурсы в порядке: реестр -> метрики -> транспорты -> L2 -> генератор
func Build(ctx context.Context, cfg *infra.Config, logger *zap.Logger) (*App, error) {
	a := &App{}

	// 1. Реестр сайтов: Postgres, если задан URL, иначе секция sites
	var source sites.Source
	if cfg.Database.URL != "" {
		repo, err := postgres.NewSiteRepo(cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = repo.Ping(pingCtx)
		cancel()
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("app: database unreachable: %w", err)
		}
		a.SiteRepo = repo
		a.closers = append(a.closers, repo.Close)
		source = repo
	} else {
		static, err := sites.NewStatic(cfg.Sites)
		if err != nil {
			return nil, err
		}
		source = static
	}
	a.Registry = sites.NewRegistry(source)

	// 2. Метрики
	a.Prom = prometheus.NewRegistry()
	a.Prom.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = engine.NewMetrics(a.Prom)

	// 3. Транспорты сайтов под защитой ReliabilityWrapper
	factory := connectors.Factory{DialTimeout: cfg.Engine.DialTimeout}
	a.Pool = engine.NewBackendPool(factory.New, engine.ReliabilityOptions{
		QueryTimeout:  cfg.Engine.QueryTimeout,
		ProbeTimeout:  cfg.Engine.ProbeTimeout,
		RetryAttempts: cfg.Engine.RetryAttempts,
		RateLimit:     cfg.Engine.RateLimit,
		RateBurst:     cfg.Engine.RateBurst,
		CBMaxRequests: cfg.Engine.CBMaxRequests,
		CBInterval:    cfg.Engine.CBInterval,
		CBTimeout:     cfg.Engine.CBTimeout,
		CBFailures:    cfg.Engine.CBFailures,
	}, a.Metrics, logger)
	a.closers = append(a.closers, a.Pool.Close)

	// 4. L2 состояний сайтов (опционально)
	var store engine.StateStore
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			a.Close()
			return nil, fmt.Errorf("app: redis unreachable: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		store = engine.NewRedisStateStore(rdb, logger)
	}
	a.Reach = engine.NewReachabilityManager(a.Registry, a.Pool, store, cfg.Engine.FanoutLimit, a.Metrics, logger)

	// 5. Генератор обзора
	mode, err := query.ParseMode(cfg.Overview.DecodeMode)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Generator = overview.NewGenerator(overview.Deps{
		Sites:    a.Registry,
		Reach:    a.Reach,
		Backends: a.Pool,
		Decoder:  query.NewDecoder(mode, logger),
		Filters:  overview.ContextFilterResolver{},
		Links:    overview.URLLinkBuilder{BaseURL: cfg.Overview.LinkBase},
		Titles:   overview.MacroTitleRenderer{},
		Metrics:  a.Metrics,
	}, overview.Options{
		FanoutLimit: cfg.Engine.FanoutLimit,
		Title:       cfg.Overview.Title,
		TitleURL:    cfg.Overview.TitleURL,
	}, logger)

	return a, nil
}

// Close освобождает ресурсы в обратном порядке
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
