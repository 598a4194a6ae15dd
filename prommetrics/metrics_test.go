package prommetrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.AddDispatched(3)
	m.AddDispatched(0)
	m.AddRecovered(1)
	m.AddErrors(2)
	m.AddErrors(-1)
	m.AddLockMisses(1)
	m.SetPending(7)
	m.ObserveBatchDuration(150 * time.Millisecond)

	require.InDelta(t, 3, testutil.ToFloat64(m.dispatched), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.recovered), 0)
	require.InDelta(t, 2, testutil.ToFloat64(m.errors), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.lockMisses), 0)
	require.InDelta(t, 7, testutil.ToFloat64(m.pending), 0)

	expected := `
# HELP joboutbox_relay_pending Number of outbox records waiting for dispatch.
# TYPE joboutbox_relay_pending gauge
joboutbox_relay_pending 7
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "joboutbox_relay_pending"))

	count, err := testutil.GatherAndCount(reg, "joboutbox_relay_batch_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestMetricsNamespaceAndLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg, WithNamespace("billing"), WithConstLabels(prometheus.Labels{"instance": "a"}))
	require.NoError(t, err)
	m.AddDispatched(1)

	expected := `
# HELP billing_relay_dispatched_total Count of outbox records handed to the scheduler.
# TYPE billing_relay_dispatched_total counter
billing_relay_dispatched_total{instance="a"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "billing_relay_dispatched_total"))
}

func TestNewDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	require.Error(t, err)
	require.Panics(t, func() { MustNew(reg) })
}
