package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/mise/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the session collectors.
type Metrics struct {
	Events        *prometheus.CounterVec
	Ended         *prometheus.CounterVec
	Active        prometheus.Gauge
	TickElapsed   prometheus.Histogram
	StepsAdvanced prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mise_session_events_total",
				Help: "Total number of applied session operations",
			},
			[]string{"type"},
		),
		Ended: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mise_sessions_ended_total",
				Help: "Sessions removed from the registry",
			},
			[]string{"reason"},
		),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mise_sessions_live",
			Help: "Sessions currently held in the registry",
		}),
		TickElapsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mise_tick_elapsed_seconds",
			Help:    "Whole seconds charged by a single tick",
			Buckets: []float64{1, 2, 3, 5, 10, 30, 60},
		}),
		StepsAdvanced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mise_steps_advanced_total",
			Help: "Automatic step advancements",
		}),
	}
	reg.MustRegister(m.Events, m.Ended, m.Active, m.TickElapsed, m.StepsAdvanced)
	return m
}

// Observe records one session event.
func (m *Metrics) Observe(e domain.SessionEvent) {
	m.Events.WithLabelValues(string(e.Type)).Inc()

	switch e.Type {
	case domain.EventStarted:
		m.Active.Inc()
	case domain.EventEnded:
		m.Active.Dec()
		m.Ended.WithLabelValues(string(e.Reason)).Inc()
	case domain.EventTicked:
		m.TickElapsed.Observe(float64(e.Elapsed))
	case domain.EventAdvanced:
		m.StepsAdvanced.Inc()
	}
}

// LogEvents returns a listener that logs every event except ticks, which are
// logged at debug level.
func LogEvents(logger *slog.Logger) func(domain.SessionEvent) {
	return func(e domain.SessionEvent) {
		level := slog.LevelInfo
		if e.Type == domain.EventTicked {
			level = slog.LevelDebug
		}

		attrs := []any{"recipe_id", e.RecipeID}
		if e.After != nil {
			attrs = append(attrs,
				"step", e.After.CurrentStepIndex+1,
				"step_remaining_sec", e.After.StepRemainingSec,
				"overall_remaining_sec", e.After.OverallRemainingSec,
			)
		}
		if e.Reason != "" {
			attrs = append(attrs, "reason", e.Reason)
		}
		logger.Log(context.Background(), level, string(e.Type), attrs...)
	}
}
