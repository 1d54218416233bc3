package telemetry

import (
	"context"
	"errors"

	"github.com/Sambhav-gg/StreetBites/internal/telemetry/domain"
)

// EventEmitter emits telemetry events (e.g. to Kafka or OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.Event) error
}

// Nop discards every event.
type Nop struct{}

// Emit implements EventEmitter.
func (Nop) Emit(context.Context, *domain.Event) error { return nil }

// Multi fans an event out to several emitters. Nil entries are skipped.
type Multi []EventEmitter

// Emit sends the event to every emitter and joins their errors.
func (m Multi) Emit(ctx context.Context, event *domain.Event) error {
	var errs []error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
