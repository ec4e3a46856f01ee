package http

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/discipl/ipv8-healthcheck/probe/internal/core/domain"
)

// ResultSource is the monitor view the sidecar handlers need.
type ResultSource interface {
	Last() *domain.Result
	RunOnce(ctx context.Context) domain.Result
}

type HealthHandler struct {
	source  ResultSource
	limiter *rate.Limiter
}

// NewHealthHandler allows at most one fresh probe per minInterval; calls in
// between are answered from the last result.
func NewHealthHandler(source ResultSource, minInterval time.Duration) *HealthHandler {
	return &HealthHandler{
		source:  source,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	res := h.source.Last()
	if allowed := h.limiter.Allow(); allowed || res == nil {
		// The run outlives a departing client; the monitor's per-run timeout bounds it
		fresh := h.source.RunOnce(context.WithoutCancel(r.Context()))
		res = &fresh
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	if !res.Healthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("unhealthy: " + string(res.Stage())))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("healthy"))
}
