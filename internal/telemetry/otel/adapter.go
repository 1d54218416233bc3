package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/Sambhav-gg/StreetBites/internal/telemetry"
	"github.com/Sambhav-gg/StreetBites/internal/telemetry/domain"
)

// NewEventEmitter returns an EventEmitter that sends events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return telemetry.Nop{}
	}
	return &otelEmitter{logger: provider.Logger("streetbites.telemetry")}
}

type otelEmitter struct {
	logger otellog.Logger
}

// Emit converts the event to an OTel log record.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetSeverity(otellog.SeverityInfo)
	if len(event.Metadata) > 0 {
		rec.SetBody(otellog.BytesValue(event.Metadata))
	}
	attrs := []otellog.KeyValue{otellog.String("event_type", event.EventType)}
	if event.Source != "" {
		attrs = append(attrs, otellog.String("source", event.Source))
	}
	if event.UserID != "" {
		attrs = append(attrs, otellog.String("user_id", event.UserID))
	}
	if event.StallID != "" {
		attrs = append(attrs, otellog.String("stall_id", event.StallID))
	}
	rec.AddAttributes(attrs...)
	e.logger.Emit(ctx, rec)
	return nil
}
