package workflow

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pktikkani/mindful-poster/pkg/monitoring"
)

// Metrics counts pipeline outcomes. A nil *Metrics is safe to call.
type Metrics struct {
	Generations *prometheus.CounterVec
	Decisions   *prometheus.CounterVec
	Publishes   *prometheus.CounterVec
}

func NewMetrics(collector *monitoring.MetricsCollector) *Metrics {
	if collector == nil {
		return nil
	}
	return &Metrics{
		Generations: collector.NewCounter("generations_total", "Post draft generations by outcome", []string{"outcome"}),
		Decisions:   collector.NewCounter("decisions_total", "Approver decisions by action", []string{"action"}),
		Publishes:   collector.NewCounter("publishes_total", "Instagram publish attempts by outcome", []string{"outcome"}),
	}
}

func (m *Metrics) IncGeneration(outcome string) {
	if m == nil || m.Generations == nil {
		return
	}

	m.Generations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncDecision(action string) {
	if m == nil || m.Decisions == nil {
		return
	}

	m.Decisions.WithLabelValues(action).Inc()
}

func (m *Metrics) IncPublish(outcome string) {
	if m == nil || m.Publishes == nil {
		return
	}

	m.Publishes.WithLabelValues(outcome).Inc()
}
