package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventEncodeDecode(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	original := Event{
		Type: EventMessageNew,
		Message: &Message{
			ID:        "msg-1",
			From:      "user-a",
			To:        "user-b",
			Text:      "hello",
			CreatedAt: now,
		},
	}

	data, err := original.Encode()
	assert.NoError(t, err)

	decoded, err := DecodeEvent(data)
	assert.NoError(t, err)
	assert.Equal(t, EventMessageNew, decoded.Type)
	assert.Equal(t, original.Message.ID, decoded.Message.ID)
	assert.Equal(t, original.Message.Text, decoded.Message.Text)
	assert.True(t, decoded.Message.CreatedAt.Equal(now))
	assert.Nil(t, decoded.Send)
	assert.Nil(t, decoded.Error)
}

func TestEventEncodeWireShape(t *testing.T) {
	data, err := Event{
		Type:   EventTypingStart,
		Typing: &TypingPayload{From: "user-a", To: "user-b"},
	}.Encode()
	assert.NoError(t, err)

	var raw map[string]json.RawMessage
	assert.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `"typing:start"`, string(raw["event"]))
	assert.JSONEq(t, `{"from":"user-a","to":"user-b"}`, string(raw["payload"]))
}

func TestDecodeEventUnknownType(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"event":"message:unsend","payload":{}}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestEncodeUnknownTypeRejected(t *testing.T) {
	_, err := Event{Type: EventType("bogus")}.Encode()
	assert.Error(t, err)
}

func TestDecodeEventMalformed(t *testing.T) {
	_, err := DecodeEvent([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`{"event":"message:send","payload":"not an object"}`))
	assert.Error(t, err)
}

func TestDecodeEventDirectionalPayloads(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"event":"message:read","payload":{"message_id":"msg-1","user_id":"user-a"}}`))
	assert.NoError(t, err)
	assert.Equal(t, "msg-1", ev.Read.MessageID)
	assert.Equal(t, "user-a", ev.Read.UserID)

	// the server-to-client receipt omits user_id
	data, err := Event{
		Type: EventMessageRead,
		Read: &ReadPayload{MessageID: "msg-1"},
	}.Encode()
	assert.NoError(t, err)
	assert.NotContains(t, string(data), "user_id")
}
