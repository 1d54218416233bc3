// Package producer writes telemetry events to a message broker for the worker to consume.
package producer

import (
	"context"

	"github.com/Sambhav-gg/StreetBites/internal/telemetry/domain"
)

// Producer emits telemetry events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single telemetry event. Implementations may block briefly; wrap in telemetry.Async from request paths.
	Emit(ctx context.Context, event *domain.Event) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
