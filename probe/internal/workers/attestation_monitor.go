package workers

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/discipl/ipv8-healthcheck/probe/internal/core/domain"
	"github.com/discipl/ipv8-healthcheck/probe/internal/telemetry"
)

// AttestationMonitor probes the IPv8 node on a fixed interval and keeps the
// latest result for the sidecar endpoints.
type AttestationMonitor struct {
	prober   domain.Prober
	metrics  *telemetry.Metrics
	hub      *telemetry.Hub
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration

	mu   sync.Mutex // Serialises runs so transitions are seen in order
	last atomic.Pointer[domain.Result]
}

func NewAttestationMonitor(
	prober domain.Prober,
	metrics *telemetry.Metrics,
	hub *telemetry.Hub,
	logger *slog.Logger,
	interval time.Duration,
	timeout time.Duration,
) *AttestationMonitor {
	return &AttestationMonitor{
		prober:   prober,
		metrics:  metrics,
		hub:      hub,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
	}
}

// Start probes immediately and then on every tick until ctx is cancelled.
func (m *AttestationMonitor) Start(ctx context.Context) {
	m.logger.Info("Attestation monitor started", slog.Duration("interval", m.interval))
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Attestation monitor stopped")
			return
		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}

// RunOnce performs a recorded probe run and returns its result.
func (m *AttestationMonitor) RunOnce(ctx context.Context) domain.Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Per-run timeout: a hung node must not stall the monitor
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	res := m.prober.Probe(ctx)
	prev := m.last.Swap(&res)

	m.metrics.Observe(res)
	m.hub.Broadcast(res)

	switch {
	case !res.Healthy() && (prev == nil || prev.Healthy()):
		m.handleFailure(res)
	case res.Healthy() && prev != nil && !prev.Healthy():
		m.handleRecovery(res)
	}
	return res
}

// Last returns the most recent result, or nil before the first run.
func (m *AttestationMonitor) Last() *domain.Result {
	return m.last.Load()
}

func (m *AttestationMonitor) handleFailure(res domain.Result) {
	m.logger.Warn("IPv8 node failed attestation probe",
		slog.String("run_id", res.ID.String()),
		slog.String("stage", string(res.Stage())),
		slog.Any("missing", res.Missing),
		slog.Any("error", res.Err),
	)
}

func (m *AttestationMonitor) handleRecovery(res domain.Result) {
	m.logger.Info("IPv8 node recovered",
		slog.String("run_id", res.ID.String()),
		slog.Duration("duration", res.Duration),
	)
}
