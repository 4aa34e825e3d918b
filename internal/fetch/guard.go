package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/transitpal/internal/metrics"
	"github.com/danpilch/transitpal/internal/report"
	"github.com/danpilch/transitpal/internal/state"
)

// guard runs fn and converts its outcome into a Result. Errors and panics become
// a failed Result carrying the zero value of T; nothing escapes to the caller.
func guard[T any](ctx context.Context, source string, logger *logrus.Logger, fn func(context.Context) (T, error)) (r state.Result[T]) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			metrics.FetchResults.WithLabelValues(source, "panic").Inc()
			logger.WithFields(logrus.Fields{
				"source": source,
				"panic":  p,
			}).Error("fetch panicked")
			report.RecoveredPanic("fetch."+source, p)
			r = state.Failed[T](fmt.Errorf("panic: %v", p))
		}
		metrics.FetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()

	data, err := fn(ctx)
	if err != nil {
		metrics.FetchResults.WithLabelValues(source, "failure").Inc()
		logger.WithFields(logrus.Fields{
			"source": source,
			"error":  err,
		}).Warn("fetch failed")
		return state.Failed[T](err)
	}

	metrics.FetchResults.WithLabelValues(source, "success").Inc()
	return state.Succeeded(data)
}
