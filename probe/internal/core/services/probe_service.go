package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/discipl/ipv8-healthcheck/probe/internal/core/domain"
)

// NewHTTPClient returns the client used for attestation probes. A zero
// timeout leaves requests unbounded, as the probe has no timeout of its own.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// AttestationProbe checks that the local IPv8 node knows every expected peer.
type AttestationProbe struct {
	client   *http.Client
	url      string
	expected []string
	logger   *slog.Logger
}

var _ domain.Prober = (*AttestationProbe)(nil)

func NewAttestationProbe(
	client *http.Client,
	url string,
	expected []string,
	logger *slog.Logger,
) *AttestationProbe {
	return &AttestationProbe{
		client:   client,
		url:      url,
		expected: expected,
		logger:   logger,
	}
}

// Probe performs one GET and validates status, body and peer membership.
// The first failing step ends the run.
func (p *AttestationProbe) Probe(ctx context.Context) domain.Result {
	res := domain.Result{ID: uuid.New(), StartedAt: time.Now()}
	res.Missing, res.Err = p.check(ctx)
	res.Duration = time.Since(res.StartedAt)

	logger := p.logger.With(slog.String("run_id", res.ID.String()), slog.String("url", p.url))
	if res.Err != nil {
		logger.Debug("Attestation probe failed",
			slog.String("stage", string(res.Stage())),
			slog.Any("error", res.Err),
			slog.Duration("duration", res.Duration),
		)
		return res
	}
	logger.Debug("Attestation probe passed", slog.Duration("duration", res.Duration))
	return res
}

func (p *AttestationProbe) check(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, &domain.Failure{Stage: domain.StageTransport, Err: err}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &domain.Failure{Stage: domain.StageTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.Failure{
			Stage: domain.StageStatus,
			Err:   fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.Failure{Stage: domain.StageTransport, Err: fmt.Errorf("read body: %w", err)}
	}

	payload, err := domain.DecodeAttestation(body)
	if err != nil {
		return nil, &domain.Failure{Stage: domain.StageDecode, Err: err}
	}

	missing, err := domain.MissingPeers(payload, p.expected)
	if err != nil {
		return nil, &domain.Failure{Stage: domain.StageMembership, Err: err}
	}
	if len(missing) > 0 {
		return missing, &domain.Failure{
			Stage: domain.StageMembership,
			Err:   fmt.Errorf("peers not attested: %v", missing),
		}
	}
	return nil, nil
}
