// Package metrics exposes ledger activity to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/token-ledger/internal/models"
)

// Outcomes recorded for every operation.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeReplayed = "replayed"
	OutcomeFailed   = "failed"
)

// Metrics is safe to use as a nil pointer; every method becomes a no-op.
type Metrics struct {
	operations  *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	totalSupply prometheus.Gauge
	seq         prometheus.Gauge
	publishErrs prometheus.Counter
}

// New registers the ledger collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "token_ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "token_ledger",
			Name:      "rejections_total",
			Help:      "Rejected operations by failure kind.",
		}, []string{"reason"}),
		totalSupply: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "token_ledger",
			Name:      "total_supply_tokens",
			Help:      "Total supply in whole tokens (approximate).",
		}),
		seq: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "token_ledger",
			Name:      "journal_seq",
			Help:      "Sequence number of the last applied operation.",
		}),
		publishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "token_ledger",
			Name:      "event_publish_errors_total",
			Help:      "Events that could not be published.",
		}),
	}
	reg.MustRegister(m.operations, m.rejections, m.totalSupply, m.seq, m.publishErrs)
	return m
}

func (m *Metrics) ObserveOperation(kind models.OperationKind, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(string(kind), outcome).Inc()
}

func (m *Metrics) ObserveRejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// SetState records the supply (converted with decimals) and the journal position.
func (m *Metrics) SetState(totalSupply decimal.Decimal, decimals int32, seq int64) {
	if m == nil {
		return
	}
	m.totalSupply.Set(totalSupply.Shift(-decimals).InexactFloat64())
	m.seq.Set(float64(seq))
}

func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishErrs.Inc()
}
