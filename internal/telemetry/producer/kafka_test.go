package producer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sambhav-gg/StreetBites/internal/telemetry/domain"
)

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestNewKafkaProducer_DisabledWithoutConfig(t *testing.T) {
	assert.Nil(t, NewKafkaProducer(nil, "topic"))
	assert.Nil(t, NewKafkaProducer([]string{"localhost:9092"}, ""))

	var p *KafkaProducer
	assert.NoError(t, p.Emit(context.Background(), &domain.Event{}))
	assert.NoError(t, p.Close())
}

func TestKafkaProducer_Emit(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, topic: "t"}

	ev := domain.NewEvent(domain.EventReviewAdded, "review", map[string]int{"rating": 4}).WithStall("s1").WithUser("u1")
	require.NoError(t, p.Emit(context.Background(), ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "s1", string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, domain.EventReviewAdded, string(msg.Headers[0].Value))

	var decoded domain.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "review_added", decoded.EventType)
	assert.Equal(t, "u1", decoded.UserID)
	assert.JSONEq(t, `{"rating":4}`, string(decoded.Metadata))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaProducer_KeyFallsBackToUser(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w}
	require.NoError(t, p.Emit(context.Background(), domain.NewEvent(domain.EventOTPVerified, "identity", nil).WithUser("u9")))
	assert.Equal(t, "u9", string(w.msgs[0].Key))
}
