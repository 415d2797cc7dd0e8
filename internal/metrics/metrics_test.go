package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/sheikh-saqib/token-ledger/internal/models"
)

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOperation(models.KindTransfer, OutcomeApplied)
	m.ObserveOperation(models.KindTransfer, OutcomeApplied)
	m.ObserveOperation(models.KindMint, OutcomeRejected)
	m.ObserveRejection("OnlyMinter")
	m.SetState(decimal.RequireFromString("2500000000000000000"), 18, 7)
	m.PublishFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("transfer", OutcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("mint", OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("OnlyMinter")))
	assert.Equal(t, 2.5, testutil.ToFloat64(m.totalSupply))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.seq))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishErrs))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation(models.KindBurn, OutcomeApplied)
		m.ObserveRejection("x")
		m.SetState(decimal.Zero, 18, 0)
		m.PublishFailed()
	})
}
