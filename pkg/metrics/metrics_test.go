package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest("GET", "/api/v1/availability", 200, time.Millisecond)
		m.ObserveDBQuery("select", time.Millisecond, nil)
		m.SetDBConnections(1, 1, 0)
		m.IncReservation("reserved")
		m.IncReconciliation("applied")
		m.IncAnomaly("orphan_notification")
		m.IncOutboxPublished("booking.confirmed")
	})
}

func TestMetrics_Counters(t *testing.T) {
	m := NewWithRegisterer("garage-booking", prometheus.NewRegistry())

	m.IncReservation("conflict")
	m.IncReservation("conflict")
	m.IncAnomaly("paid_for_unheld_slot")
	m.ObserveDBQuery("insert", time.Millisecond, errors.New("boom"))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.reservationsTotal.WithLabelValues("conflict")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.anomaliesTotal.WithLabelValues("paid_for_unheld_slot")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.dbQueryErrors.WithLabelValues("insert")))
}
