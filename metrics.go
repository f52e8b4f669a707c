package varia

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "varia"

	opLabel     = "op"
	resultLabel = "result"
	fromLabel   = "from"
)

type runnerMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	migrations *prometheus.CounterVec
	retries    prometheus.Counter
}

func newRunnerMetrics() *runnerMetrics {
	return &runnerMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Runner operations by operation and result",
		}, []string{opLabel, resultLabel}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "operation_seconds",
			Help:      "Runner operation handling time",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{opLabel}),
		migrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "migrations_total",
			Help:      "Records migrated from a prior variant, by source tag",
		}, []string{fromLabel}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "verify_retries_total",
			Help:      "Written records whose read-back checksum did not match",
		}),
	}
}

func (m *runnerMetrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.operations, m.duration, m.migrations, m.retries} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *runnerMetrics) observe(op string, start time.Time, err error) {
	m.operations.With(prometheus.Labels{opLabel: op, resultLabel: resultOf(err)}).Inc()
	m.duration.With(prometheus.Labels{opLabel: op}).Observe(time.Since(start).Seconds())
}

func (m *runnerMetrics) migrated(from Tag) {
	m.migrations.With(prometheus.Labels{fromLabel: strconv.Itoa(int(from))}).Inc()
}

// resultOf names the error kind for the result label.
func resultOf(err error) string {
	kinds := []struct {
		err  error
		name string
	}{
		{ErrFileNotFound, "file_not_found"},
		{ErrFormatInvalid, "format_invalid"},
		{ErrVariantNotFound, "variant_not_found"},
		{ErrEncodingFailed, "encoding_failed"},
		{ErrParsingFailed, "parsing_failed"},
		{ErrFailedToWrite, "failed_to_write"},
		{ErrClosed, "closed"},
		{ErrIO, "io"},
		{context.Canceled, "canceled"},
		{context.DeadlineExceeded, "deadline"},
	}
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "error"
}
