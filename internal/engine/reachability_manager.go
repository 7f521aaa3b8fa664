package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall"

	"github.com/xela07ax/site-overview/internal/connectors"
	"github.com/xela07ax/site-overview/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StateStore — распределенный L2 для состояний сайтов (Redis в проде).
type StateStore interface {
	Load(ctx context.Context) (map[string]string, error)
	Publish(ctx context.Context, siteID string, state domain.Reachability) error
	Warmup(ctx context.Context, states map[string]domain.Reachability) error
	StartListener(ctx context.Context, onReconnect func() error, onMessage func(siteID, state string))
}

// SiteLister отдает известные системе сайты
type SiteLister interface {
	Sites(ctx context.Context) ([]domain.Site, error)
}

// BackendSource отдает транспорт сайта (BackendPool)
type BackendSource interface {
	Service(site domain.Site) (connectors.Service, error)
}

// ReachabilityManager хранит состояния связности сайтов.
// L1 — map под RWMutex, L2 (опционально) — общий для инстансов StateStore.
type ReachabilityManager struct {
	mu      sync.RWMutex
	states  map[string]domain.SiteStatus
	sites   SiteLister
	pool    BackendSource
	store   StateStore // nil — режим одного инстанса
	limit   int
	metrics *Metrics
	logger  *zap.Logger
}

func NewReachabilityManager(sites SiteLister, pool BackendSource, store StateStore, fanout int, metrics *Metrics, logger *zap.Logger) *ReachabilityManager {
	if fanout <= 0 {
		fanout = 8
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &ReachabilityManager{
		states:  make(map[string]domain.SiteStatus),
		sites:   sites,
		pool:    pool,
		store:   store,
		limit:   fanout,
		metrics: metrics,
		logger:  logger.With(zap.String("mod", "reachability")),
	}
}

// Init загружает состояния из L2 в локальную память.
// Вызывается при старте и при каждом переподключении слушателя.
func (m *ReachabilityManager) Init(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	raw, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("reachability: init: %w", err)
	}

	sites, err := m.sites.Sites(ctx)
	if err != nil {
		return fmt.Errorf("reachability: init: %w", err)
	}

	next := make(map[string]domain.SiteStatus, len(sites))
	for _, s := range sites {
		v, ok := raw[s.ID]
		if !ok {
			continue
		}
		state, err := domain.ParseReachability(v)
		if err != nil {
			m.logger.Warn("ignoring unknown cached state", zap.String("site_id", s.ID), zap.String("state", v))
			continue
		}
		next[s.ID] = domain.SiteStatus{SiteID: s.ID, State: state, Alias: s.Alias}
	}

	m.mu.Lock()
	m.states = next
	m.mu.Unlock()

	m.logger.Info("site states synchronized", zap.Int("count", len(next)))
	return nil
}

// RefreshDeadSites проверяет связность всех сайтов параллельно и обновляет L1/L2.
// Должен выполняться до чтения States в рамках одного запроса.
// Прерванная вызывающим проверка ничего не меняет: кэш общий для всех запросов.
func (m *ReachabilityManager) RefreshDeadSites(ctx context.Context) error {
	sites, err := m.sites.Sites(ctx)
	if err != nil {
		return fmt.Errorf("reachability: refresh: %w", err)
	}

	results := make([]domain.SiteStatus, len(sites))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(m.limit)
	for i, site := range sites {
		g.Go(func() error {
			state, err := m.probe(gCtx, site)
			if err != nil {
				return err
			}
			results[i] = domain.SiteStatus{SiteID: site.ID, State: state, Alias: site.Alias}
			return nil // ошибки сайтов не отменяют соседей
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("reachability: refresh: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("reachability: refresh: %w", err)
	}

	next := make(map[string]domain.SiteStatus, len(results))
	for _, st := range results {
		next[st.SiteID] = st
		online := 0.0
		if st.State == domain.SiteOnline {
			online = 1
		}
		m.metrics.SiteOnline.WithLabelValues(st.SiteID).Set(online)
	}

	m.mu.Lock()
	prev := m.states
	m.states = next
	m.mu.Unlock()

	// В L2 пишем только изменения
	for id, st := range next {
		if old, ok := prev[id]; ok && old.State == st.State {
			continue
		}
		m.logger.Info("site state changed", zap.String("site_id", id), zap.String("state", string(st.State)))
		m.publish(ctx, id, st.State)
	}
	return nil
}

// probe возвращает ошибку только если проверку прервал вызывающий
func (m *ReachabilityManager) probe(ctx context.Context, site domain.Site) (domain.Reachability, error) {
	if site.Disabled {
		return domain.SiteDisabled, nil
	}

	svc, err := m.pool.Service(site)
	if err != nil {
		m.logger.Warn("site has no usable transport", zap.String("site_id", site.ID), zap.Error(err))
		return domain.SiteDead, nil
	}

	if err := svc.Ping(ctx); err != nil {
		if Aborted(ctx, err) {
			return "", fmt.Errorf("probe %s: %w", site.ID, err)
		}
		state := StateForError(err)
		m.logger.Debug("site probe failed",
			zap.String("site_id", site.ID),
			zap.String("state", string(state)),
			zap.Error(err))
		return state, nil
	}
	return domain.SiteOnline, nil
}

// StateForError сводит ошибку транспорта к состоянию связности
func StateForError(err error) domain.Reachability {
	switch {
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return domain.SiteUnreach
	case FailureReason(err) == "timeout", FailureReason(err) == "circuit_open":
		return domain.SiteDead
	default:
		return domain.SiteDown
	}
}

// States возвращает копию текущих состояний (site_id -> status)
func (m *ReachabilityManager) States() map[string]domain.SiteStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]domain.SiteStatus, len(m.states))
	for k, v := range m.states {
		out[k] = v
	}
	return out
}

func (m *ReachabilityManager) StateTitles() map[domain.Reachability]string {
	return domain.ReachabilityTitles()
}

// ReportQueryFailure помечает сайт, чей запрос статистики упал после успешной проверки связности.
// Возвращает состояние, под которым сайт попадет в ответ.
// Ошибка от отмены вызывающим кэш не трогает: отдаем то, что уже известно.
func (m *ReachabilityManager) ReportQueryFailure(ctx context.Context, siteID string, err error) domain.Reachability {
	if Aborted(ctx, err) {
		m.mu.RLock()
		defer m.mu.RUnlock()
		if st, ok := m.states[siteID]; ok {
			return st.State
		}
		return domain.SiteMissing
	}

	state := StateForError(err)

	m.mu.Lock()
	st, ok := m.states[siteID]
	if !ok {
		m.mu.Unlock()
		return domain.SiteMissing
	}
	changed := st.State != state
	st.State = state
	m.states[siteID] = st
	m.mu.Unlock()

	m.metrics.SiteOnline.WithLabelValues(siteID).Set(0)
	if changed {
		m.publish(ctx, siteID, state)
	}
	return state
}

// Warmup заливает текущие L1 состояния в пустой L2
func (m *ReachabilityManager) Warmup(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	m.mu.RLock()
	snapshot := make(map[string]domain.Reachability, len(m.states))
	for id, st := range m.states {
		snapshot[id] = st.State
	}
	m.mu.RUnlock()
	return m.store.Warmup(ctx, snapshot)
}

// StartListener слушает изменения состояний от других инстансов (блокирующий)
func (m *ReachabilityManager) StartListener(ctx context.Context) {
	if m.store == nil {
		return
	}
	m.store.StartListener(ctx,
		func() error { return m.Init(ctx) },
		func(siteID, value string) { m.apply(siteID, value) },
	)
}

func (m *ReachabilityManager) apply(siteID, value string) {
	state, err := domain.ParseReachability(value)
	if err != nil {
		m.logger.Warn("ignoring unknown state signal", zap.String("site_id", siteID), zap.String("state", value))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.states[siteID]
	st.SiteID = siteID
	st.State = state
	m.states[siteID] = st
}

func (m *ReachabilityManager) publish(ctx context.Context, siteID string, state domain.Reachability) {
	if m.store == nil {
		return
	}
	if err := m.store.Publish(ctx, siteID, state); err != nil {
		m.logger.Error("failed to publish site state", zap.String("site_id", siteID), zap.Error(err))
	}
}
