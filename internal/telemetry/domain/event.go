package domain

import (
	"encoding/json"
	"time"
)

// Event types emitted by the services.
const (
	EventOTPSent         = "otp_sent"
	EventOTPVerified     = "otp_verified"
	EventReviewAdded     = "review_added"
	EventStallImpression = "stall_impression"
	EventStallCreated    = "stall_created"
	EventHTTPRequest     = "http_request"
)

// Event is a domain telemetry event. It is the JSON value written to Kafka and read by the worker.
type Event struct {
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	UserID    string          `json:"userId,omitempty"`
	StallID   string          `json:"stallId,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEvent returns an event stamped with the current UTC time. metadata is marshalled to JSON;
// a value that cannot be marshalled is dropped.
func NewEvent(eventType, source string, metadata any) *Event {
	e := &Event{EventType: eventType, Source: source, CreatedAt: time.Now().UTC()}
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			e.Metadata = b
		}
	}
	return e
}

// WithUser sets UserID and returns e.
func (e *Event) WithUser(userID string) *Event {
	e.UserID = userID
	return e
}

// WithStall sets StallID and returns e.
func (e *Event) WithStall(stallID string) *Event {
	e.StallID = stallID
	return e
}
