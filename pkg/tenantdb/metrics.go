package tenantdb

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records commit outcomes. A nil *Metrics records nothing.
type Metrics struct {
	commits  *prometheus.CounterVec
	rows     prometheus.Counter
	duration prometheus.Histogram
}

// NewMetrics creates commit metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		commits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tenantdb",
				Name:      "commits_total",
				Help:      "Commit attempts by outcome",
			},
			[]string{"outcome"},
		),
		rows: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "tenantdb",
				Name:      "affected_rows_total",
				Help:      "Rows affected by successful commits",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "tenantdb",
				Name:      "commit_duration_seconds",
				Help:      "Duration of successful commits",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	var err error
	if m.commits, err = register(reg, m.commits); err != nil {
		return nil, err
	}
	if m.rows, err = register(reg, m.rows); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// register registers c, reusing an identical collector registered earlier.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Commits returns the counter of commit attempts for outcome.
func (m *Metrics) Commits(outcome string) prometheus.Counter {
	return m.commits.WithLabelValues(outcome)
}

// AffectedRows returns the counter of rows written by successful commits.
func (m *Metrics) AffectedRows() prometheus.Counter {
	return m.rows
}

func (m *Metrics) observeCommitted(rows int, d time.Duration) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues("committed").Inc()
	m.rows.Add(float64(rows))
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) observeRejected(err error) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(rejectionReason(err)).Inc()
}

func (m *Metrics) observeFailed() {
	if m == nil {
		return
	}
	m.commits.WithLabelValues("failed").Inc()
}
