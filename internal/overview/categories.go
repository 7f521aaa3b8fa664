package overview

import "github.com/xela07ax/site-overview/internal/domain"

const TotalTitle = "Total number of hosts"

// Categories — пять корзин в фиксированном порядке легенды плюс итог
func Categories(s domain.SiteStats) ([]domain.Category, domain.Category) {
	parts := []domain.Category{
		{Title: "hosts are in scheduled downtime", CSSClass: "downtime", Count: s.InDowntime},
		{Title: "hosts are down or have critical services", CSSClass: "critical", Count: s.DownOrCritical},
		{Title: "hosts are unreachable or have unknown services", CSSClass: "unknown", Count: s.UnreachableOrUnknown},
		{Title: "hosts are up but have services in warning state", CSSClass: "warning", Count: s.UpWithWarning},
		{Title: "hosts are up and have no service problems", CSSClass: "ok", Count: s.UpOK},
	}

	total := 0
	for _, p := range parts {
		total += p.Count
	}
	return parts, domain.Category{Title: TotalTitle, CSSClass: "", Count: total}
}
