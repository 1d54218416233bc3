package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sambhav-gg/StreetBites/internal/telemetry/domain"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []*domain.Event
	err    error
	done   chan struct{}
}

func (r *recordingEmitter) Emit(ctx context.Context, event *domain.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	if r.done != nil {
		r.done <- struct{}{}
	}
	return r.err
}

func TestAsync_Delivers(t *testing.T) {
	rec := &recordingEmitter{done: make(chan struct{}, 1)}
	a := NewAsync(rec, zerolog.Nop())

	if err := a.Emit(context.Background(), domain.NewEvent(domain.EventOTPSent, "identity", nil)); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 1 || rec.events[0].EventType != domain.EventOTPSent {
		t.Errorf("events = %+v", rec.events)
	}
}

func TestAsync_IgnoresCanceledRequestContext(t *testing.T) {
	rec := &recordingEmitter{done: make(chan struct{}, 1), err: errors.New("kafka down")}
	a := NewAsync(rec, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := a.Emit(ctx, domain.NewEvent(domain.EventReviewAdded, "review", nil)); err != nil {
		t.Fatalf("Emit should not surface errors: %v", err)
	}
	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered after request cancel")
	}
}

func TestAsync_NilSafe(t *testing.T) {
	var a *Async
	if err := a.Emit(context.Background(), &domain.Event{}); err != nil {
		t.Error(err)
	}
	if err := NewAsync(nil, zerolog.Nop()).Emit(context.Background(), &domain.Event{}); err != nil {
		t.Error(err)
	}
}

func TestMulti_JoinsErrors(t *testing.T) {
	ok := &recordingEmitter{}
	bad := &recordingEmitter{err: errors.New("boom")}
	err := Multi{ok, nil, bad}.Emit(context.Background(), domain.NewEvent("x", "y", map[string]int{"n": 1}))
	if err == nil || err.Error() != "boom" {
		t.Errorf("err = %v, want boom", err)
	}
	if len(ok.events) != 1 || len(bad.events) != 1 {
		t.Error("every emitter should receive the event")
	}
	if string(ok.events[0].Metadata) != `{"n":1}` {
		t.Errorf("metadata = %s", ok.events[0].Metadata)
	}
}
