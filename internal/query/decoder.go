package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/xela07ax/site-overview/internal/domain"
	"go.uber.org/zap"
)

// Контракты колонок. Порядок совпадает с порядком значений в строке.
var (
	HostStatusColumns = []string{
		"name",
		"scheduled_downtime_depth",
		"state",
		"num_services",
		"num_services_crit",
		"num_services_unknown",
		"num_services_warn",
	}

	BucketFactColumns = []string{
		"name",
		"state",
		"worst_service_state",
		"scheduled_downtime_depth",
	}
)

// siteStatsArity — пять корзин в stats-ответе
const siteStatsArity = 5

// Mode управляет реакцией декодера на битые строки.
type Mode int

const (
	// Strict — первая битая строка прерывает весь запрос
	Strict Mode = iota
	// Lenient — битая строка пропускается и логируется
	Lenient
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return Strict, nil
	case "lenient":
		return Lenient, nil
	default:
		return Strict, fmt.Errorf("query: unknown decode mode %q", s)
	}
}

func (m Mode) String() string {
	if m == Lenient {
		return "lenient"
	}
	return "strict"
}

// Decoder превращает табличные строки в типизированные записи.
type Decoder struct {
	mode   Mode
	logger *zap.Logger
}

func NewDecoder(mode Mode, logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{mode: mode, logger: logger.With(zap.String("mod", "decoder"))}
}

func (d *Decoder) Mode() Mode { return d.mode }

// DecodeHostRows возвращает по одной записи на строку, ключ — имя хоста.
// Дубликаты ключей не склеиваются: это битый вход (MalformedRowError).
func (d *Decoder) DecodeHostRows(rows []Row) (map[string]domain.HostStatus, error) {
	out := make(map[string]domain.HostStatus, len(rows))
	for i, row := range rows {
		h, err := decodeHostRow(i, row)
		if err == nil {
			if _, dup := out[h.Name]; dup {
				err = &domain.MalformedRowError{Index: i, Want: len(HostStatusColumns), Got: len(row),
					Reason: fmt.Sprintf("duplicate host %q", h.Name)}
			}
		}
		if err != nil {
			if skipErr := d.handle(i, err); skipErr != nil {
				return nil, skipErr
			}
			continue
		}
		out[h.Name] = h
	}
	return out, nil
}

// DecodeBucketFacts — для бэкендов без stats pushdown: строки name/state/worst_service_state/downtime.
func (d *Decoder) DecodeBucketFacts(rows []Row) ([]domain.BucketFacts, error) {
	out := make([]domain.BucketFacts, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		name, f, err := decodeBucketRow(i, row)
		if err == nil {
			if _, dup := seen[name]; dup {
				err = &domain.MalformedRowError{Index: i, Want: len(BucketFactColumns), Got: len(row),
					Reason: fmt.Sprintf("duplicate host %q", name)}
			}
		}
		if err != nil {
			if skipErr := d.handle(i, err); skipErr != nil {
				return nil, skipErr
			}
			continue
		}
		seen[name] = struct{}{}
		out = append(out, f)
	}
	return out, nil
}

// DecodeSiteStats разбирает ответ composite stats-запроса req: ровно одна строка из пяти чисел
// (плюс id сайта впереди, если просили PrependSite). Тут режим не важен — строка одна.
func (d *Decoder) DecodeSiteStats(req Request, rows []Row) (domain.SiteStats, error) {
	want := req.Arity()
	if len(req.Stats) != siteStatsArity {
		return domain.SiteStats{}, fmt.Errorf("query: stats request has %d expressions, want %d", len(req.Stats), siteStatsArity)
	}
	if len(rows) == 0 {
		return domain.SiteStats{}, nil
	}
	if len(rows) > 1 {
		return domain.SiteStats{}, &domain.MalformedRowError{Index: 1, Want: want, Got: len(rows[1]),
			Reason: fmt.Sprintf("expected a single stats row, got %d", len(rows))}
	}
	row := rows[0]
	if len(row) != want {
		return domain.SiteStats{}, &domain.MalformedRowError{Index: 0, Want: want, Got: len(row)}
	}
	if req.PrependSite {
		site, err := cellString(0, row[0], "site")
		if err != nil {
			return domain.SiteStats{}, err
		}
		if len(req.OnlySites) > 0 && !slices.Contains(req.OnlySites, site) {
			return domain.SiteStats{}, &domain.MalformedRowError{Index: 0, Want: want, Got: len(row),
				Reason: fmt.Sprintf("stats row for site %q, asked for %v", site, req.OnlySites)}
		}
		row = row[1:]
	}
	var counts [siteStatsArity]int
	for col := range counts {
		n, err := cellCount(0, row[col], "stats")
		if err != nil {
			return domain.SiteStats{}, err
		}
		counts[col] = n
	}
	return domain.SiteStats{
		InDowntime:           counts[0],
		DownOrCritical:       counts[1],
		UnreachableOrUnknown: counts[2],
		UpWithWarning:        counts[3],
		UpOK:                 counts[4],
	}, nil
}

// handle решает: прервать декодирование или пропустить строку.
// UnknownStateError всегда прерывает, независимо от режима.
func (d *Decoder) handle(index int, err error) error {
	var unknown *domain.UnknownStateError
	if d.mode == Strict || errors.As(err, &unknown) {
		return err
	}
	d.logger.Warn("skipping malformed row", zap.Int("row", index), zap.Error(err))
	return nil
}

func decodeHostRow(i int, row Row) (domain.HostStatus, error) {
	if len(row) != len(HostStatusColumns) {
		return domain.HostStatus{}, &domain.MalformedRowError{Index: i, Want: len(HostStatusColumns), Got: len(row)}
	}
	name, err := cellString(i, row[0], "name")
	if err != nil {
		return domain.HostStatus{}, err
	}
	var nums [6]int
	for col := range nums {
		n, err := cellCount(i, row[col+1], HostStatusColumns[col+1])
		if err != nil {
			return domain.HostStatus{}, err
		}
		nums[col] = n
	}
	state, err := domain.ParseHostState(nums[1])
	if err != nil {
		return domain.HostStatus{}, err
	}
	return domain.HostStatus{
		Name:                   name,
		ScheduledDowntimeDepth: nums[0],
		State:                  state,
		NumServices:            nums[2],
		NumServicesCrit:        nums[3],
		NumServicesUnknown:     nums[4],
		NumServicesWarn:        nums[5],
	}, nil
}

func decodeBucketRow(i int, row Row) (string, domain.BucketFacts, error) {
	if len(row) != len(BucketFactColumns) {
		return "", domain.BucketFacts{}, &domain.MalformedRowError{Index: i, Want: len(BucketFactColumns), Got: len(row)}
	}
	name, err := cellString(i, row[0], "name")
	if err != nil {
		return "", domain.BucketFacts{}, err
	}
	var nums [3]int
	for col := range nums {
		n, err := cellCount(i, row[col+1], BucketFactColumns[col+1])
		if err != nil {
			return "", domain.BucketFacts{}, err
		}
		nums[col] = n
	}
	state, err := domain.ParseHostState(nums[0])
	if err != nil {
		return "", domain.BucketFacts{}, err
	}
	worst, err := domain.ParseServiceState(nums[1])
	if err != nil {
		return "", domain.BucketFacts{}, err
	}
	return name, domain.BucketFacts{State: state, WorstServiceState: worst, ScheduledDowntimeDepth: nums[2]}, nil
}

func cellString(i int, v any, column string) (string, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", &domain.MalformedRowError{Index: i, Reason: fmt.Sprintf("column %s: expected non-empty string, got %T", column, v)}
	}
	return s, nil
}

// cellCount — неотрицательное целое. JSON-декодеры отдают числа как float64 или json.Number.
func cellCount(i int, v any, column string) (int, error) {
	n, ok := toInt(v)
	if !ok {
		return 0, &domain.MalformedRowError{Index: i, Reason: fmt.Sprintf("column %s: expected integer, got %v (%T)", column, v, v)}
	}
	if n < 0 {
		return 0, &domain.MalformedRowError{Index: i, Reason: fmt.Sprintf("column %s: negative value %d", column, n)}
	}
	return n, nil
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		if t > math.MaxInt || t < math.MinInt {
			return 0, false
		}
		return int(t), true
	case float64:
		// 2^63 уже не влезает в int64, поэтому граница строгая
		if t != math.Trunc(t) || t >= math.MaxInt64 || t < math.MinInt64 {
			return 0, false
		}
		if int64(t) > math.MaxInt || int64(t) < math.MinInt {
			return 0, false
		}
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		if err != nil || n > math.MaxInt || n < math.MinInt {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
