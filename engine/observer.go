// ABOUTME: Observer hook for ingestion instrumentation (framing, decode failures, drops, session outcomes).
// ABOUTME: The default observer does nothing; the telemetry package provides a Prometheus-backed one.
package engine

import (
	"time"

	"github.com/2389-research/tickertape/stream"
)

// Observer receives ingestion signals. Implementations must be safe for
// concurrent use and must not call back into the Controller.
type Observer interface {
	LinesFramed(n int)
	DecodeFailed(err error)
	ProtocolViolation(t stream.EventType)
	EventApplied(t stream.EventType)
	EventDropped(t stream.EventType)
	SessionFinished(status Status, latency time.Duration)
}

type nopObserver struct{}

func (nopObserver) LinesFramed(int)                       {}
func (nopObserver) DecodeFailed(error)                    {}
func (nopObserver) ProtocolViolation(stream.EventType)    {}
func (nopObserver) EventApplied(stream.EventType)         {}
func (nopObserver) EventDropped(stream.EventType)         {}
func (nopObserver) SessionFinished(Status, time.Duration) {}
