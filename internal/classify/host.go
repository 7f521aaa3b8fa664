package classify

import "github.com/xela07ax/site-overview/internal/domain"

// CSS-классы хоста и сервисов, их понимает слой отрисовки.
const (
	HostClassDowntime    = "downtime"
	HostClassUp          = "up"
	HostClassDown        = "down"
	HostClassUnreachable = "unreachable"

	ServiceClassCritical = "critical"
	ServiceClassUnknown  = "unknown"
	ServiceClassWarning  = "warning"
	ServiceClassOK       = "ok"
)

// HostCSSClass: даунтайм перекрывает любое состояние хоста.
func HostCSSClass(h domain.HostStatus) (string, error) {
	if !h.State.Valid() {
		return "", &domain.UnknownStateError{Field: "state", Value: int(h.State)}
	}
	if h.ScheduledDowntimeDepth > 0 {
		return HostClassDowntime, nil
	}
	switch h.State {
	case domain.HostUnreachable:
		return HostClassUnreachable, nil
	case domain.HostDown:
		return HostClassDown, nil
	default:
		return HostClassUp, nil
	}
}

// ServiceCSSClass — худший из проблемных сервисов. Даунтайм здесь не учитывается.
func ServiceCSSClass(h domain.HostStatus) string {
	switch {
	case h.NumServicesCrit > 0:
		return ServiceClassCritical
	case h.NumServicesUnknown > 0:
		return ServiceClassUnknown
	case h.NumServicesWarn > 0:
		return ServiceClassWarning
	default:
		return ServiceClassOK
	}
}

// HasProblem — хост не UP или находится в даунтайме
func HasProblem(h domain.HostStatus) bool {
	return h.State != domain.HostUp || h.ScheduledDowntimeDepth > 0
}
