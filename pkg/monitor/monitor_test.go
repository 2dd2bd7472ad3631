package monitor

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordOnNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordDiscovery("found")
	m.RecordConfirm("ETH", "ok")
	m.RecordHandshake("outer", time.Second)
	m.RecordAPDU("wrapped")
}

func TestRecordCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordDiscovery("found")
	m.RecordDiscovery("found")
	m.RecordConfirm("BTC", "ok")
	m.RecordAPDU("wrapped")

	if got := testutil.ToFloat64(m.DiscoveryScans.WithLabelValues("found")); got != 2 {
		t.Fatalf("expected 2 discovery scans, got %v", got)
	}
	if got := testutil.ToFloat64(m.ConfirmAttempts.WithLabelValues("BTC", "ok")); got != 1 {
		t.Fatalf("expected 1 confirm attempt, got %v", got)
	}
	if got := testutil.ToFloat64(m.RelayedAPDUs.WithLabelValues("wrapped")); got != 1 {
		t.Fatalf("expected 1 apdu, got %v", got)
	}
}
