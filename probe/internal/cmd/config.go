package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/discipl/ipv8-healthcheck/probe/internal/config"
	"github.com/discipl/ipv8-healthcheck/probe/internal/core/domain"
)

// NewConfigCommand audits the effective configuration before it is deployed
// as a container HEALTHCHECK.
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print and audit the effective probe configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintf(out, "FAIL: %v\n", err)
				return err
			}

			fmt.Fprintf(out, "url:            %s\n", cfg.URL)
			fmt.Fprintf(out, "expected peers: %s\n", strings.Join(cfg.ExpectedPeers, ", "))
			fmt.Fprintf(out, "timeout:        %s\n", cfg.Timeout)
			fmt.Fprintf(out, "log level:      %s\n", cfg.LogLevel)
			fmt.Fprintf(out, "listen addr:    %s\n", cfg.ListenAddr)
			fmt.Fprintf(out, "interval:       %s\n", cfg.Interval)
			fmt.Fprintf(out, "min interval:   %s\n", cfg.MinInterval)

			for _, notice := range auditConfig(cfg) {
				fmt.Fprintf(out, "NOTICE: %s\n", notice)
			}
			fmt.Fprintln(out, "PASS: configuration is valid")
			return nil
		},
	}
}

// auditConfig reports settings that are valid but differ from the stock probe.
func auditConfig(cfg *config.Config) []string {
	var notices []string

	if cfg.URL != domain.DefaultAttestationURL {
		notices = append(notices, "probe URL differs from the stock IPv8 attestation endpoint")
	}
	if u, err := url.Parse(cfg.URL); err == nil && u.Query().Get("type") != "peers" {
		notices = append(notices, "probe URL does not request the peers view (type=peers)")
	}

	expected := map[string]bool{}
	for _, id := range cfg.ExpectedPeers {
		expected[id] = true
	}
	for _, id := range domain.DefaultExpectedPeers {
		if !expected[id] {
			notices = append(notices, fmt.Sprintf("stock peer %s is not expected", id))
		}
	}

	if cfg.Timeout == 0 {
		notices = append(notices, "no probe timeout; the orchestrator's own timeout applies")
	}
	return notices
}
