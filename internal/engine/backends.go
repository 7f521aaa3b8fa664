package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/xela07ax/site-overview/internal/connectors"
	"github.com/xela07ax/site-overview/internal/domain"
	"go.uber.org/zap"
)

// TransportFactory — как построить транспорт сайта (connectors.Factory в проде, фейки в тестах)
type TransportFactory func(site domain.Site) (connectors.Service, error)

// backendKey — все, от чего зависит транспорт. Смена любого поля в реестре пересоздает его.
type backendKey struct {
	address   string
	transport domain.Transport
	token     string
}

func keyOf(site domain.Site) backendKey {
	return backendKey{address: site.Address, transport: site.Transport, token: site.Token}
}

type backend struct {
	key backendKey
	svc *ReliabilityWrapper
}

// BackendPool лениво создает и кэширует защищенные транспорты по id сайта.
// Предохранитель и лимитер должны жить дольше одного запроса, поэтому пул долгоживущий.
type BackendPool struct {
	mu       sync.Mutex
	services map[string]backend
	factory  TransportFactory
	opts     ReliabilityOptions
	metrics  *Metrics
	logger   *zap.Logger
}

func NewBackendPool(factory TransportFactory, opts ReliabilityOptions, metrics *Metrics, logger *zap.Logger) *BackendPool {
	return &BackendPool{
		services: make(map[string]backend),
		factory:  factory,
		opts:     opts,
		metrics:  metrics,
		logger:   logger.Named("backends"),
	}
}

// Service возвращает защищенный транспорт сайта. Отключенный сайт транспорта не имеет.
func (p *BackendPool) Service(site domain.Site) (connectors.Service, error) {
	if site.Disabled {
		return nil, fmt.Errorf("%w: site %s is disabled", domain.ErrNoBackend, site.ID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := keyOf(site)
	old, cached := p.services[site.ID]
	if cached && old.key == key {
		return old.svc, nil
	}

	next, err := p.factory(site)
	if err != nil {
		p.logger.Error("failed to build site transport",
			zap.String("site_id", site.ID),
			zap.String("transport", string(site.Transport)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrNoBackend, err)
	}

	// Адрес или транспорт сайта поменялись в реестре: старый клиент больше не нужен
	if cached {
		p.logger.Info("site transport changed, replacing",
			zap.String("site_id", site.ID),
			zap.String("address", site.Address),
			zap.String("transport", string(site.Transport)))
		p.closeBackend(site.ID, old)
	}

	svc := NewReliabilityWrapper(site.ID, next, p.opts, p.metrics)
	p.services[site.ID] = backend{key: key, svc: svc}
	p.logger.Debug("site transport created", zap.String("site_id", site.ID), zap.String("transport", string(site.Transport)))
	return svc, nil
}

// Close закрывает все транспорты пула
func (p *BackendPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for id, b := range p.services {
		errs = append(errs, b.svc.Close())
		delete(p.services, id)
	}
	return errors.Join(errs...)
}

func (p *BackendPool) closeBackend(siteID string, b backend) {
	if err := b.svc.Close(); err != nil {
		p.logger.Warn("failed to close site transport", zap.String("site_id", siteID), zap.Error(err))
	}
}
