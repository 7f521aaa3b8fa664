package connectors

import (
	"fmt"
	"time"

	"github.com/xela07ax/site-overview/internal/domain"
	"github.com/xela07ax/site-overview/internal/query"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Service — то, что нужно остальному коду от транспорта сайта.
type Service interface {
	query.Service
	query.Pinger
}

// Factory строит транспорт по записи реестра.
type Factory struct {
	DialTimeout time.Duration
}

func (f Factory) New(site domain.Site) (Service, error) {
	switch site.Transport {
	case domain.TransportLivestatus, "":
		return NewLivestatusClient(site.ID, site.Address, f.DialTimeout)
	case domain.TransportGRPC:
		// В реальном проде TLS/mTLS, здесь insecure как у внутренних агентов
		conn, err := grpc.NewClient(site.Address,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithUnaryInterceptor(TokenInterceptor(site.Token)),
		)
		if err != nil {
			return nil, fmt.Errorf("grpc: failed to connect to site %s: %w", site.ID, err)
		}
		return NewGRPCAdapter(site.ID, conn), nil
	case domain.TransportMock:
		return LoadMockSite(site.ID, site.Address)
	default:
		return nil, fmt.Errorf("connectors: unknown transport %q for site %s", site.Transport, site.ID)
	}
}
