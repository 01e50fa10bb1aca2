package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/mise/pkg/domain"
	"github.com/aretw0/mise/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics holds the collectors of NewMetricsMiddleware.
type StoreMetrics struct {
	Duration *prometheus.HistogramVec
}

// NewStoreMetrics creates the store collectors and registers them on reg.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mise_store_operation_duration_seconds",
				Help:    "Latency of recipe store operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op", "outcome"},
		),
	}
	reg.MustRegister(m.Duration)
	return m
}

// NewMetricsMiddleware times every store call. A missing recipe counts as
// "not_found", not as an error.
func NewMetricsMiddleware(m *StoreMetrics) Middleware {
	return func(next ports.RecipeStore) ports.RecipeStore {
		return &metricsMiddleware{next: next, metrics: m}
	}
}

type metricsMiddleware struct {
	next    ports.RecipeStore
	metrics *StoreMetrics
}

func (m *metricsMiddleware) observe(op string, start time.Time, err error) {
	m.metrics.Duration.WithLabelValues(op, outcome(err)).Observe(time.Since(start).Seconds())
}

func (m *metricsMiddleware) Get(ctx context.Context, id string) (domain.Recipe, error) {
	start := time.Now()
	r, err := m.next.Get(ctx, id)
	m.observe("get", start, err)
	return r, err
}

func (m *metricsMiddleware) List(ctx context.Context) ([]domain.Recipe, error) {
	start := time.Now()
	list, err := m.next.List(ctx)
	m.observe("list", start, err)
	return list, err
}

func (m *metricsMiddleware) Save(ctx context.Context, recipe domain.Recipe) error {
	start := time.Now()
	err := m.next.Save(ctx, recipe)
	m.observe("save", start, err)
	return err
}

func (m *metricsMiddleware) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := m.next.Delete(ctx, id)
	m.observe("delete", start, err)
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrRecipeNotFound):
		return "not_found"
	default:
		return "error"
	}
}
