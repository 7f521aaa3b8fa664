package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"github.com/xela07ax/site-overview/internal/connectors"
	"github.com/xela07ax/site-overview/internal/query"
	"golang.org/x/time/rate"
)

// ErrRateLimited — локальный лимитер не дал выполнить запрос к сайту
var ErrRateLimited = errors.New("rate limit exceeded")

// abortedError — вызов прерван отменой или дедлайном вызывающей стороны, сайт тут ни при чем
type abortedError struct{ err error }

func (e *abortedError) Error() string { return e.err.Error() }
func (e *abortedError) Unwrap() error { return e.err }

// Aborted сообщает, что ошибка вызвана отменой контекста вызывающего, а не сайтом
func Aborted(ctx context.Context, err error) bool {
	var a *abortedError
	return errors.As(err, &a) || (err != nil && ctx.Err() != nil)
}

// ReliabilityOptions настройки защиты одного сайта.
type ReliabilityOptions struct {
	QueryTimeout  time.Duration // таймаут одной попытки
	ProbeTimeout  time.Duration // таймаут проверки связности
	RetryAttempts uint
	RateLimit     float64 // запросов в секунду
	RateBurst     int
	CBMaxRequests uint32
	CBInterval    time.Duration
	CBTimeout     time.Duration
	CBFailures    uint32 // подряд идущих ошибок до открытия
}

func (o ReliabilityOptions) withDefaults() ReliabilityOptions {
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = 10 * time.Second
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = o.QueryTimeout
	}
	if o.RetryAttempts == 0 {
		o.RetryAttempts = 1
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 100
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 20
	}
	if o.CBMaxRequests == 0 {
		o.CBMaxRequests = 3
	}
	if o.CBInterval <= 0 {
		o.CBInterval = 5 * time.Second
	}
	if o.CBTimeout <= 0 {
		o.CBTimeout = 30 * time.Second
	}
	if o.CBFailures == 0 {
		o.CBFailures = 5
	}
	return o
}

// ReliabilityWrapper оборачивает транспорт сайта: Rate Limit -> Circuit Breaker -> Retry -> Timeout.
type ReliabilityWrapper struct {
	siteID  string
	next    connectors.Service
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	opts    ReliabilityOptions
	metrics *Metrics
}

func NewReliabilityWrapper(siteID string, next connectors.Service, opts ReliabilityOptions, metrics *Metrics) *ReliabilityWrapper {
	opts = opts.withDefaults()
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	// Настройка предохранителя, у каждого сайта свой
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        siteID,
		MaxRequests: opts.CBMaxRequests,
		Interval:    opts.CBInterval,
		Timeout:     opts.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.CBFailures
		},
		// Отмена клиентом не отказ сайта
		IsSuccessful: func(err error) bool {
			var a *abortedError
			return err == nil || errors.As(err, &a)
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &ReliabilityWrapper{
		siteID:  siteID,
		next:    next,
		cb:      cb,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
		opts:    opts,
		metrics: metrics,
	}
}

// SupportsStats прозрачно пробрасывает возможность pushdown
func (w *ReliabilityWrapper) SupportsStats() bool {
	return query.SupportsStats(w.next)
}

// Ping идет мимо предохранителя: проверка связности должна видеть реальное состояние
func (w *ReliabilityWrapper) Ping(ctx context.Context) error {
	tCtx, cancel := context.WithTimeout(ctx, w.opts.ProbeTimeout)
	defer cancel()
	err := w.next.Ping(tCtx)
	if err != nil && ctx.Err() != nil {
		return &abortedError{err: ctx.Err()}
	}
	return err
}

// Close освобождает транспорт сайта, если он держит соединение
func (w *ReliabilityWrapper) Close() error {
	if c, ok := w.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (w *ReliabilityWrapper) Query(ctx context.Context, req query.Request) (rows []query.Row, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		switch {
		case err == nil:
		case Aborted(ctx, err):
			status = "aborted"
		default:
			status = "error"
			w.metrics.SiteQueryFailures.WithLabelValues(w.siteID, FailureReason(err)).Inc()
		}
		w.metrics.SiteQueryDuration.WithLabelValues(w.siteID, status).Observe(time.Since(start).Seconds())
	}()

	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, &abortedError{err: ctx.Err()}
		}
		return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	// 2. Circuit Breaker
	cbResult, err := w.cb.Execute(func() (interface{}, error) {
		var result []query.Row
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(w.opts.RetryAttempts),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Бэкенд сам сказал, сколько ждать
				var tErr *connectors.ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}
				return retry.BackOffDelay(n, err, config)
			}),
		)

		retryErr := r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, w.opts.QueryTimeout)
			defer cancel()

			var callErr error
			result, callErr = w.next.Query(tCtx, req)
			return callErr
		})
		// Таймаут попытки остается отказом сайта, дедлайн вызывающего нет
		if retryErr != nil && ctx.Err() != nil {
			return nil, &abortedError{err: ctx.Err()}
		}
		return result, retryErr
	})
	if err != nil {
		return nil, err
	}

	return cbResult.([]query.Row), nil
}

// FailureReason — метка для метрик и логов
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.As(err, new(*abortedError)):
		return "aborted"
	case errors.Is(err, context.DeadlineExceeded), isNetTimeout(err):
		return "timeout"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, ErrRateLimited):
		return "rate_limit"
	default:
		return "backend"
	}
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
