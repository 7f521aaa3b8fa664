package connectors

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xela07ax/site-overview/internal/query"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Удаленный агент сайта принимает и отдает google.protobuf.Struct,
// поэтому сгенерированный код не нужен — вызываем метод по имени.
const (
	QueryServiceName = "overview.query.v1.TabularQuery"
	queryMethod      = "/" + QueryServiceName + "/Query"
)

type GRPCAdapter struct {
	siteID string
	conn   grpc.ClientConnInterface
	health healthpb.HealthClient
}

// NewGRPCAdapter создает экземпляр адаптера поверх готового соединения
func NewGRPCAdapter(siteID string, conn grpc.ClientConnInterface) *GRPCAdapter {
	return &GRPCAdapter{
		siteID: siteID,
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
	}
}

// Close закрывает соединение, если адаптер им владеет
func (a *GRPCAdapter) Close() error {
	if c, ok := a.conn.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SupportsStats — агент отдает сырые строки, корзины считаем у себя
func (a *GRPCAdapter) SupportsStats() bool { return false }

// Query реализует query.Service
func (a *GRPCAdapter) Query(ctx context.Context, req query.Request) ([]query.Row, error) {
	// 1. Упаковываем явные параметры запроса в Struct
	in, err := structpb.NewStruct(map[string]any{
		"table":        req.Table,
		"columns":      toAnySlice(req.Columns),
		"filter":       req.Filter,
		"only_sites":   toAnySlice(req.OnlySites),
		"prepend_site": req.PrependSite,
	})
	if err != nil {
		return nil, fmt.Errorf("grpc: failed to build request for %s: %w", a.siteID, err)
	}

	// 2. Вызов
	var trailer metadata.MD
	out := &structpb.Struct{}
	if err := a.conn.Invoke(ctx, queryMethod, in, out, grpc.Trailer(&trailer)); err != nil {
		if status.Code(err) == codes.ResourceExhausted {
			return nil, &ThrottleError{RetryAfter: retryAfter(trailer), Cause: err}
		}
		return nil, fmt.Errorf("grpc: query to %s failed: %w", a.siteID, err)
	}

	// 3. rows: [[...], [...]]
	list := out.GetFields()["rows"].GetListValue()
	rows := make([]query.Row, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		cells := v.GetListValue()
		if cells == nil {
			return nil, fmt.Errorf("grpc: row %d from %s is not a list", i, a.siteID)
		}
		rows = append(rows, query.Row(cells.AsSlice()))
	}
	return rows, nil
}

// Ping — стандартный grpc health check сервиса запросов
func (a *GRPCAdapter) Ping(ctx context.Context) error {
	resp, err := a.health.Check(ctx, &healthpb.HealthCheckRequest{Service: QueryServiceName})
	if err != nil {
		return fmt.Errorf("grpc: health check of %s failed: %w", a.siteID, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("grpc: site %s is %s", a.siteID, resp.GetStatus())
	}
	return nil
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func retryAfter(md metadata.MD) time.Duration {
	const fallback = time.Second
	vals := md.Get("retry-after")
	if len(vals) == 0 {
		return fallback
	}
	secs, err := strconv.Atoi(vals[0])
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
