package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/discipl/ipv8-healthcheck/probe/internal/core/domain"
	"github.com/discipl/ipv8-healthcheck/probe/internal/telemetry"
)

// ResultEvent is the JSON form of a probe result on the event stream.
type ResultEvent struct {
	ID         string    `json:"id"`
	Healthy    bool      `json:"healthy"`
	Stage      string    `json:"stage,omitempty"`
	Error      string    `json:"error,omitempty"`
	Missing    []string  `json:"missing,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

func NewResultEvent(res domain.Result) ResultEvent {
	ev := ResultEvent{
		ID:         res.ID.String(),
		Healthy:    res.Healthy(),
		Stage:      string(res.Stage()),
		Missing:    res.Missing,
		StartedAt:  res.StartedAt,
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	return ev
}

type EventsHandler struct {
	hub    *telemetry.Hub
	logger *slog.Logger
}

func NewEventsHandler(hub *telemetry.Hub, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{hub: hub, logger: logger}
}

// Stream relays every probe result to the client as Server-Sent Events
// until the client disconnects.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Debug("SSE connection established", slog.String("remote", r.RemoteAddr))

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("SSE client disconnected", slog.String("remote", r.RemoteAddr))
			return
		case res, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(NewResultEvent(res))
			if err != nil {
				h.logger.Error("Failed to encode probe result", slog.Any("error", err))
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				h.logger.Warn("Failed to write to SSE client", slog.Any("error", err))
				return
			}
			flusher.Flush()
		}
	}
}
