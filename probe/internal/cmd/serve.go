package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/discipl/ipv8-healthcheck/probe/internal/api/router"
	"github.com/discipl/ipv8-healthcheck/probe/internal/config"
	"github.com/discipl/ipv8-healthcheck/probe/internal/core/services"
	probehttp "github.com/discipl/ipv8-healthcheck/probe/internal/delivery/http"
	"github.com/discipl/ipv8-healthcheck/probe/internal/telemetry"
	"github.com/discipl/ipv8-healthcheck/probe/internal/workers"
)

// defaultServeTimeout bounds each monitor run when PROBE_TIMEOUT is unset.
const defaultServeTimeout = 5 * time.Second

func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the probe continuously and expose it over HTTP",
		Long: "Probes the IPv8 node every PROBE_INTERVAL and serves /healthz, /events, " +
			"/metrics and /ping on PROBE_LISTEN_ADDR until interrupted",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			level := cfg.LogLevel
			if level == config.LogLevelOff {
				level = config.LogLevelInfo
			}

			s := &serveCommand{
				cfg:    cfg,
				logger: telemetry.NewLogger(cmd.ErrOrStderr(), level),
			}
			return s.Run(cmd.Context())
		},
	}
}

// serveTimeout bounds both the HTTP client and each monitor run.
func serveTimeout(cfg *config.Config) time.Duration {
	if cfg.Timeout == 0 {
		return defaultServeTimeout
	}
	return cfg.Timeout
}

type serveCommand struct {
	cfg    *config.Config
	logger *slog.Logger
}

func (s *serveCommand) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(reg)
	hub := telemetry.NewHub()

	// --- Probe & monitor ---
	timeout := serveTimeout(s.cfg)
	prober := services.NewAttestationProbe(
		services.NewHTTPClient(timeout),
		s.cfg.URL,
		s.cfg.ExpectedPeers,
		s.logger,
	)
	monitor := workers.NewAttestationMonitor(prober, metrics, hub, s.logger, s.cfg.Interval, timeout)

	// --- HTTP gateway ---
	mux := router.NewRouter(router.RouterConfig{
		AllowedOrigins: s.cfg.AllowedOrigins,
		HealthHandler:  probehttp.NewHealthHandler(monitor, s.cfg.MinInterval),
		EventsHandler:  probehttp.NewEventsHandler(hub, s.logger),
		Gatherer:       reg,
		Logger:         s.logger,
	})

	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Request contexts end with ctx so open SSE streams let shutdown finish
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go monitor.Start(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Healthcheck sidecar active", slog.String("addr", listener.Addr().String()))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			s.logger.Error("Sidecar server crashed", slog.Any("error", err))
			return err
		}
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Forced shutdown", slog.Any("error", err))
		return err
	}
	return nil
}
