package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage identifies the step of a probe run that produced a Failure.
// It is diagnostic only: every stage maps to the same unhealthy outcome.
type Stage string

const (
	StageNone       Stage = ""
	StageTransport  Stage = "transport"
	StageStatus     Stage = "status"
	StageDecode     Stage = "decode"
	StageMembership Stage = "membership"
	StageUnknown    Stage = "unknown"
)

// ErrProbeFailed matches every Failure via errors.Is.
var ErrProbeFailed = errors.New("attestation probe failed")

// Failure is the single error kind a probe run produces.
type Failure struct {
	Stage Stage
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrProbeFailed, f.Stage, f.Err)
}

func (f *Failure) Unwrap() []error {
	return []error{ErrProbeFailed, f.Err}
}

// Result is the outcome of one probe run.
type Result struct {
	ID        uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Err       error

	// Missing lists the expected peers absent from a well-formed payload.
	Missing []string
}

// Healthy reports whether the run passed every check.
func (r Result) Healthy() bool {
	return r.Err == nil
}

// Stage reports the failing step, StageNone for a healthy run.
func (r Result) Stage() Stage {
	if r.Err == nil {
		return StageNone
	}
	var f *Failure
	if errors.As(r.Err, &f) {
		return f.Stage
	}
	return StageUnknown
}

// Prober runs a single synchronous attestation probe.
type Prober interface {
	Probe(ctx context.Context) Result
}
