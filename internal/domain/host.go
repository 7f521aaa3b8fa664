package domain

import "fmt"

// HostState состояние хоста в терминах монитора (0/1/2)
type HostState int

const (
	HostUp          HostState = 0
	HostDown        HostState = 1
	HostUnreachable HostState = 2
)

// ParseHostState проверяет, что значение из строки бэкенда входит в перечисление.
func ParseHostState(v int) (HostState, error) {
	s := HostState(v)
	if !s.Valid() {
		return 0, &UnknownStateError{Field: "state", Value: v}
	}
	return s, nil
}

func (s HostState) Valid() bool {
	return s >= HostUp && s <= HostUnreachable
}

func (s HostState) String() string {
	switch s {
	case HostUp:
		return "UP"
	case HostDown:
		return "DOWN"
	case HostUnreachable:
		return "UNREACHABLE"
	default:
		return fmt.Sprintf("HostState(%d)", int(s))
	}
}

// ServiceState — состояние сервиса, используется как worst_service_state хоста.
type ServiceState int

const (
	ServiceOK       ServiceState = 0
	ServiceWarning  ServiceState = 1
	ServiceCritical ServiceState = 2
	ServiceUnknown  ServiceState = 3
)

func ParseServiceState(v int) (ServiceState, error) {
	s := ServiceState(v)
	if !s.Valid() {
		return 0, &UnknownStateError{Field: "worst_service_state", Value: v}
	}
	return s, nil
}

func (s ServiceState) Valid() bool {
	return s >= ServiceOK && s <= ServiceUnknown
}

func (s ServiceState) String() string {
	switch s {
	case ServiceOK:
		return "OK"
	case ServiceWarning:
		return "WARNING"
	case ServiceCritical:
		return "CRITICAL"
	case ServiceUnknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("ServiceState(%d)", int(s))
	}
}

// HostStatus снимок состояния одного хоста внутри сайта. Живет только в рамках запроса.
type HostStatus struct {
	Name                   string    `json:"name"`
	ScheduledDowntimeDepth int       `json:"scheduled_downtime_depth"`
	State                  HostState `json:"state"`
	NumServices            int       `json:"num_services"`
	NumServicesCrit        int       `json:"num_services_crit"`
	NumServicesUnknown     int       `json:"num_services_unknown"`
	NumServicesWarn        int       `json:"num_services_warn"`
}

// NumProblems сумма проблемных сервисов (crit + unknown + warn)
func (h HostStatus) NumProblems() int {
	return h.NumServicesCrit + h.NumServicesUnknown + h.NumServicesWarn
}

// BucketFacts — минимальный набор полей хоста для раскладки по корзинам сайта.
type BucketFacts struct {
	State                  HostState
	WorstServiceState      ServiceState
	ScheduledDowntimeDepth int
}
