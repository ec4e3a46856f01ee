package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/discipl/ipv8-healthcheck/probe/internal/config"
	"github.com/discipl/ipv8-healthcheck/probe/internal/core/domain"
	"github.com/discipl/ipv8-healthcheck/probe/internal/core/services"
	"github.com/discipl/ipv8-healthcheck/probe/internal/telemetry"
)

// Execute runs the healthcheck binary. Any error exits with status 1.
func Execute(ctx context.Context) {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe the local IPv8 attestation community for the expected peers",
		Long: "Runs a single GET against the IPv8 attestation endpoint and exits 0 when " +
			"both expected peers are attested, 1 on any failure",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProbe(cmd.Context(), cmd.ErrOrStderr())
		},
	}
	c.CompletionOptions.DisableDefaultCmd = true

	c.AddCommand(NewConfigCommand())
	c.AddCommand(NewServeCommand())
	c.AddCommand(NewVersionCommand())

	return c
}

var newProber = func(cfg *config.Config, logger *slog.Logger) domain.Prober {
	return services.NewAttestationProbe(
		services.NewHTTPClient(cfg.Timeout),
		cfg.URL,
		cfg.ExpectedPeers,
		logger,
	)
}

// runProbe performs one probe run. Panics are folded into the error so the
// exit status stays 1.
func runProbe(ctx context.Context, stderr io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := telemetry.NewLogger(stderr, cfg.LogLevel)

	res := newProber(cfg, logger).Probe(ctx)
	if !res.Healthy() {
		logger.Error("IPv8 node failed attestation probe",
			slog.String("run_id", res.ID.String()),
			slog.String("stage", string(res.Stage())),
			slog.Any("error", res.Err),
		)
		return res.Err
	}

	logger.Info("IPv8 node passed attestation probe", slog.String("run_id", res.ID.String()))
	return nil
}
