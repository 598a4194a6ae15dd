package main

import (
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/velmie/joboutbox"
	"github.com/velmie/joboutbox/mysql"
	"github.com/velmie/joboutbox/prommetrics"
)

func TestMetricsMux(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := prommetrics.New(reg)
	require.NoError(t, err)
	metrics.AddDispatched(2)

	srv := httptest.NewServer(metricsMux(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := new(strings.Builder)
	_, err = io.Copy(body, resp.Body)
	require.NoError(t, err)
	require.Contains(t, body.String(), "joboutbox_relay_dispatched_total 2")

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = health.Body.Close()
	require.Equal(t, http.StatusOK, health.StatusCode)
}

func TestLockFreeStoreHidesLocker(t *testing.T) {
	store, err := mysql.NewStore(&sql.DB{})
	require.NoError(t, err)

	var withLock joboutbox.Store = store
	_, ok := withLock.(joboutbox.Locker)
	require.True(t, ok)

	var without joboutbox.Store = lockFreeStore{Store: store, PendingCounter: store}
	_, ok = without.(joboutbox.Locker)
	require.False(t, ok)
	_, ok = without.(joboutbox.PendingCounter)
	require.True(t, ok)
}

func TestOverride(t *testing.T) {
	value := "config"
	override(&value, "")
	require.Equal(t, "config", value)
	override(&value, "flag")
	require.Equal(t, "flag", value)
}
