package workers_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discipl/ipv8-healthcheck/probe/internal/core/domain"
	"github.com/discipl/ipv8-healthcheck/probe/internal/telemetry"
	"github.com/discipl/ipv8-healthcheck/probe/internal/workers"
)

// scriptedProber replays a fixed sequence of outcomes, repeating the last one.
type scriptedProber struct {
	mu       sync.Mutex
	outcomes []error
	calls    int
	deadline bool
}

func (p *scriptedProber) Probe(ctx context.Context) domain.Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, p.deadline = ctx.Deadline()
	i := p.calls
	if i >= len(p.outcomes) {
		i = len(p.outcomes) - 1
	}
	p.calls++
	return domain.Result{ID: uuid.New(), StartedAt: time.Now(), Err: p.outcomes[i]}
}

func (p *scriptedProber) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

var errDown = &domain.Failure{Stage: domain.StageTransport, Err: errors.New("connection refused")}

func newMonitor(prober domain.Prober, logs *bytes.Buffer, interval time.Duration) (*workers.AttestationMonitor, *telemetry.Hub) {
	hub := telemetry.NewHub()
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	monitor := workers.NewAttestationMonitor(
		prober,
		telemetry.NewMetrics(prometheus.NewRegistry()),
		hub,
		logger,
		interval,
		time.Second,
	)
	return monitor, hub
}

func TestAttestationMonitor_RunOnce(t *testing.T) {
	prober := &scriptedProber{outcomes: []error{nil}}
	var logs bytes.Buffer
	monitor, hub := newMonitor(prober, &logs, time.Hour)
	events := hub.Subscribe()

	assert.Nil(t, monitor.Last())

	res := monitor.RunOnce(context.Background())

	require.NotNil(t, monitor.Last())
	assert.Equal(t, res.ID, monitor.Last().ID)
	assert.Equal(t, res.ID, (<-events).ID)
	assert.True(t, prober.deadline, "run should carry the per-run timeout")
}

func TestAttestationMonitor_LogsTransitions(t *testing.T) {
	prober := &scriptedProber{outcomes: []error{nil, errDown, errDown, nil}}
	var logs bytes.Buffer
	monitor, _ := newMonitor(prober, &logs, time.Hour)

	for i := 0; i < 4; i++ {
		monitor.RunOnce(context.Background())
	}

	out := logs.String()
	assert.Equal(t, 1, bytes.Count([]byte(out), []byte("IPv8 node failed attestation probe")))
	assert.Equal(t, 1, bytes.Count([]byte(out), []byte("IPv8 node recovered")))
	assert.True(t, monitor.Last().Healthy())
}

func TestAttestationMonitor_StartStopsOnCancel(t *testing.T) {
	prober := &scriptedProber{outcomes: []error{errDown}}
	var logs bytes.Buffer
	monitor, _ := newMonitor(prober, &logs, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		monitor.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return prober.Calls() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
	assert.False(t, monitor.Last().Healthy())
}
