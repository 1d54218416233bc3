package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sambhav-gg/StreetBites/internal/telemetry/domain"
)

// emitTimeout is the max time allowed for a single async emit. Used by Async and by ShutdownDrainDuration.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the HTTP server stops before closing producers,
// so in-flight async emits have time to complete. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// Async wraps an emitter so Emit returns immediately and the write happens in a goroutine.
// The goroutine uses context.Background() with emitTimeout so request cancellation does not abort it.
type Async struct {
	next EventEmitter
	log  zerolog.Logger
}

// NewAsync returns an Async over next. A nil next yields an emitter that drops events.
func NewAsync(next EventEmitter, log zerolog.Logger) *Async {
	return &Async{next: next, log: log}
}

// Emit schedules the event and always returns nil. Failures are logged at warn.
func (a *Async) Emit(_ context.Context, event *domain.Event) error {
	if a == nil || a.next == nil || event == nil {
		return nil
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := a.next.Emit(ctx, event); err != nil {
			a.log.Warn().Err(err).Str("event_type", event.EventType).Msg("telemetry: async emit failed")
		}
	}()
	return nil
}
