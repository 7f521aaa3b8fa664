package classify

import (
	"fmt"

	"github.com/xela07ax/site-overview/internal/domain"
	"github.com/xela07ax/site-overview/internal/query"
)

// Bucket — одна из пяти взаимоисключающих корзин хостов сайта.
type Bucket int

const (
	BucketInDowntime Bucket = iota
	BucketDownOrCritical
	BucketUnreachableOrUnknown
	BucketUpWithWarning
	BucketUpOK
)

const (
	colState    = "state"
	colWorstSvc = "worst_service_state"
	colDowntime = "scheduled_downtime_depth"
)

var bucketNames = [...]string{"in_downtime", "down_or_critical", "unreachable_or_unknown", "up_with_warning", "up_ok"}

func (b Bucket) String() string {
	if b < 0 || int(b) >= len(bucketNames) {
		return fmt.Sprintf("Bucket(%d)", int(b))
	}
	return bucketNames[b]
}

// Predicates возвращает выражения корзин в фиксированном порядке Bucket*.
// Корзина даунтайма абсолютна, остальные делят пространство с downtime = 0 по худшему состоянию.
func Predicates() []query.Expr {
	noDowntime := query.C(colDowntime, query.OpEq, 0)
	return []query.Expr{
		// 1. даунтайм
		query.C(colDowntime, query.OpGt, 0),

		// 2. DOWN или CRIT
		query.And(
			query.Or(
				query.C(colState, query.OpEq, int(domain.HostDown)),
				query.C(colWorstSvc, query.OpEq, int(domain.ServiceCritical)),
			),
			noDowntime,
		),

		// 3. UNREACHABLE без CRIT или UP с UNKNOWN
		query.And(
			query.Or(
				query.And(
					query.C(colState, query.OpEq, int(domain.HostUnreachable)),
					query.C(colWorstSvc, query.OpNeq, int(domain.ServiceCritical)),
				),
				query.And(
					query.C(colState, query.OpEq, int(domain.HostUp)),
					query.C(colWorstSvc, query.OpEq, int(domain.ServiceUnknown)),
				),
			),
			noDowntime,
		),

		// 4. UP с WARN
		query.And(
			query.C(colState, query.OpEq, int(domain.HostUp)),
			query.C(colWorstSvc, query.OpEq, int(domain.ServiceWarning)),
			noDowntime,
		),

		// 5. UP и все OK
		query.And(
			query.C(colState, query.OpEq, int(domain.HostUp)),
			query.C(colWorstSvc, query.OpEq, int(domain.ServiceOK)),
			noDowntime,
		),
	}
}

var predicates = Predicates()

// SiteBucket вычисляет все пять предикатов и требует ровно одно совпадение.
func SiteBucket(f domain.BucketFacts) (Bucket, error) {
	if !f.State.Valid() {
		return 0, &domain.UnknownStateError{Field: colState, Value: int(f.State)}
	}
	if !f.WorstServiceState.Valid() {
		return 0, &domain.UnknownStateError{Field: colWorstSvc, Value: int(f.WorstServiceState)}
	}
	if f.ScheduledDowntimeDepth < 0 {
		return 0, &domain.UnknownStateError{Field: colDowntime, Value: f.ScheduledDowntimeDepth}
	}

	v := query.Values{
		colState:    int(f.State),
		colWorstSvc: int(f.WorstServiceState),
		colDowntime: f.ScheduledDowntimeDepth,
	}
	matched := -1
	for i, p := range predicates {
		ok, err := p.Eval(v)
		if err != nil {
			return 0, fmt.Errorf("classify: %w", err)
		}
		if !ok {
			continue
		}
		if matched >= 0 {
			return 0, fmt.Errorf("classify: host %+v matches both %s and %s", f, Bucket(matched), Bucket(i))
		}
		matched = i
	}
	if matched < 0 {
		return 0, fmt.Errorf("classify: host %+v matches no bucket", f)
	}
	return Bucket(matched), nil
}

// CountBuckets — локальный аналог composite stats-запроса. Сумма всегда равна len(facts).
func CountBuckets(facts []domain.BucketFacts) (domain.SiteStats, error) {
	var s domain.SiteStats
	for _, f := range facts {
		b, err := SiteBucket(f)
		if err != nil {
			return domain.SiteStats{}, err
		}
		switch b {
		case BucketInDowntime:
			s.InDowntime++
		case BucketDownOrCritical:
			s.DownOrCritical++
		case BucketUnreachableOrUnknown:
			s.UnreachableOrUnknown++
		case BucketUpWithWarning:
			s.UpWithWarning++
		case BucketUpOK:
			s.UpOK++
		}
	}
	return s, nil
}

// SiteStatsRequest — composite запрос для бэкендов с pushdown.
// Колонки ответа идут в порядке Bucket*, ровно как ждет Decoder.DecodeSiteStats.
func SiteStatsRequest() query.Request {
	return query.Request{Table: "hosts", Stats: Predicates()}
}

// BucketFactsRequest — запрос сырых фактов для локального подсчета.
func BucketFactsRequest() query.Request {
	return query.Request{Table: "hosts", Columns: query.BucketFactColumns}
}

// HostStatusRequest — список хостов сайта с учетом внешнего фильтра.
func HostStatusRequest(siteID, filter string) query.Request {
	return query.Request{
		Table:     "hosts",
		Columns:   query.HostStatusColumns,
		Filter:    filter,
		OnlySites: []string{siteID},
	}
}
