package telemetry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discipl/ipv8-healthcheck/probe/internal/core/domain"
	"github.com/discipl/ipv8-healthcheck/probe/internal/telemetry"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	metrics.Observe(domain.Result{Duration: 10 * time.Millisecond})
	metrics.Observe(domain.Result{
		Duration: 20 * time.Millisecond,
		Err:      &domain.Failure{Stage: domain.StageStatus, Err: errors.New("unexpected status 503")},
	})

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	var healthy float64 = -1
	for _, mf := range families {
		switch mf.GetName() {
		case "ipv8_probe_runs_total":
			for _, m := range mf.GetMetric() {
				labels := map[string]string{}
				for _, l := range m.GetLabel() {
					labels[l.GetName()] = l.GetValue()
				}
				counts[labels["result"]+"/"+labels["stage"]] = m.GetCounter().GetValue()
			}
		case "ipv8_probe_healthy":
			healthy = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}

	assert.Equal(t, map[string]float64{"healthy/none": 1, "unhealthy/status": 1}, counts)
	assert.Equal(t, float64(0), healthy)

	series, err := testutil.GatherAndCount(reg, "ipv8_probe_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series)
}
