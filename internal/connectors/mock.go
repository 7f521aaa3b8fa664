package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xela07ax/site-overview/internal/domain"
	"github.com/xela07ax/site-overview/internal/query"
)

// MockSite — сайт в памяти. Используется в тестах и для демо-стенда (transport: mock).
type MockSite struct {
	SiteID  string
	Hosts   []domain.HostStatus
	Stats   bool          // умеет ли "бэкенд" pushdown
	Latency time.Duration // имитация сетевой задержки
	Err     error         // если задано — любой вызов падает
}

// LoadMockSite читает список хостов из JSON-файла
func LoadMockSite(siteID, path string) (*MockSite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mock: read fixture for %s: %w", siteID, err)
	}
	var hosts []domain.HostStatus
	if err := json.Unmarshal(data, &hosts); err != nil {
		return nil, fmt.Errorf("mock: decode fixture for %s: %w", siteID, err)
	}
	return &MockSite{SiteID: siteID, Hosts: hosts, Stats: true}, nil
}

func (m *MockSite) SupportsStats() bool { return m.Stats }

func (m *MockSite) Ping(ctx context.Context) error {
	return m.wait(ctx)
}

func (m *MockSite) Query(ctx context.Context, req query.Request) ([]query.Row, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if len(req.OnlySites) > 0 && !slices.Contains(req.OnlySites, m.SiteID) {
		return nil, nil
	}

	hosts, err := m.filter(req.Filter)
	if err != nil {
		return nil, err
	}

	if len(req.Stats) > 0 {
		if !m.Stats {
			return nil, &StatusError{Code: 400, Message: "stats are not supported"}
		}
		row := make(query.Row, 0, len(req.Stats)+1)
		if req.PrependSite {
			row = append(row, m.SiteID)
		}
		for _, e := range req.Stats {
			n := 0
			for _, h := range hosts {
				ok, err := e.Eval(hostValues(h))
				if err != nil {
					return nil, err
				}
				if ok {
					n++
				}
			}
			row = append(row, n)
		}
		return []query.Row{row}, nil
	}

	rows := make([]query.Row, 0, len(hosts))
	for _, h := range hosts {
		row := make(query.Row, 0, len(req.Columns)+1)
		if req.PrependSite {
			row = append(row, m.SiteID)
		}
		for _, col := range req.Columns {
			v, err := hostColumn(h, col)
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (m *MockSite) wait(ctx context.Context) error {
	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.Err
}

// filter понимает "Filter: <column> <op> <value>" и "And: n" / "Or: n" над стеком фильтров.
// Строковые операторы (=, ~, ~~) только для host_name/name, числовые для остальных колонок.
func (m *MockSite) filter(header string) ([]domain.HostStatus, error) {
	var stack []func(domain.HostStatus) bool
	for _, line := range strings.Split(header, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, rest, _ := strings.Cut(line, ": ")
		switch key {
		case "Filter":
			pred, err := parseMockFilter(rest)
			if err != nil {
				return nil, err
			}
			stack = append(stack, pred)
		case "And", "Or":
			n, err := strconv.Atoi(rest)
			if err != nil || n < 1 || n > len(stack) {
				return nil, &StatusError{Code: 400, Message: fmt.Sprintf("invalid %q", line)}
			}
			items := slices.Clone(stack[len(stack)-n:])
			stack = stack[:len(stack)-n]
			isOr := key == "Or"
			stack = append(stack, func(h domain.HostStatus) bool {
				for _, p := range items {
					if p(h) == isOr {
						return isOr
					}
				}
				return !isOr
			})
		default:
			return nil, &StatusError{Code: 400, Message: fmt.Sprintf("unsupported header %q", line)}
		}
	}

	var out []domain.HostStatus
	for _, h := range m.Hosts {
		ok := true
		for _, p := range stack {
			if !p(h) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, h)
		}
	}
	return out, nil
}

func parseMockFilter(expr string) (func(domain.HostStatus) bool, error) {
	fields := strings.SplitN(expr, " ", 3)
	if len(fields) != 3 {
		return nil, &StatusError{Code: 400, Message: fmt.Sprintf("unsupported filter %q", expr)}
	}
	column, op, value := fields[0], fields[1], fields[2]

	if column == "host_name" || column == "name" {
		switch op {
		case "=":
			return func(h domain.HostStatus) bool { return h.Name == value }, nil
		case "~", "~~":
			if op == "~~" {
				value = "(?i)" + value
			}
			re, err := regexp.Compile(value)
			if err != nil {
				return nil, &StatusError{Code: 400, Message: err.Error()}
			}
			return func(h domain.HostStatus) bool { return re.MatchString(h.Name) }, nil
		}
		return nil, &StatusError{Code: 400, Message: fmt.Sprintf("unsupported operator %q", op)}
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, &StatusError{Code: 400, Message: fmt.Sprintf("unsupported filter %q", expr)}
	}
	if _, ok := hostValues(domain.HostStatus{})[column]; !ok {
		return nil, &StatusError{Code: 400, Message: fmt.Sprintf("unknown column %q", column)}
	}
	cond := query.C(column, query.Op(op), n)
	if _, err := cond.Eval(query.Values{column: 0}); err != nil {
		return nil, &StatusError{Code: 400, Message: err.Error()}
	}
	return func(h domain.HostStatus) bool {
		ok, _ := cond.Eval(hostValues(h))
		return ok
	}, nil
}

// worstServiceState — как считает монитор: CRIT хуже UNKNOWN, UNKNOWN хуже WARN
func worstServiceState(h domain.HostStatus) domain.ServiceState {
	switch {
	case h.NumServicesCrit > 0:
		return domain.ServiceCritical
	case h.NumServicesUnknown > 0:
		return domain.ServiceUnknown
	case h.NumServicesWarn > 0:
		return domain.ServiceWarning
	default:
		return domain.ServiceOK
	}
}

func hostValues(h domain.HostStatus) query.Values {
	return query.Values{
		"state":                    int(h.State),
		"worst_service_state":      int(worstServiceState(h)),
		"scheduled_downtime_depth": h.ScheduledDowntimeDepth,
		"num_services":             h.NumServices,
		"num_services_crit":        h.NumServicesCrit,
		"num_services_unknown":     h.NumServicesUnknown,
		"num_services_warn":        h.NumServicesWarn,
	}
}

func hostColumn(h domain.HostStatus, col string) (any, error) {
	if col == "name" || col == "host_name" {
		return h.Name, nil
	}
	if v, ok := hostValues(h)[col]; ok {
		return v, nil
	}
	return nil, &StatusError{Code: 400, Message: fmt.Sprintf("unknown column %q", col)}
}
