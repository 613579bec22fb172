package domain

import (
	"encoding/json"
	"fmt"
)

// EventType websocket event kind
type EventType string

const (
	// EventRegister binds the authenticated user to the connection
	EventRegister EventType = "register"
	// EventMessageSend client asks the server to deliver a message
	EventMessageSend EventType = "message:send"
	// EventMessageSent server ack carrying the persisted message, sender only
	EventMessageSent EventType = "message:sent"
	// EventMessageNew server pushes an inbound message to the recipient
	EventMessageNew EventType = "message:new"
	// EventMessageError server reports a failed send, sender only
	EventMessageError EventType = "message:error"
	// EventMessageRead read flag flip, client request and server receipt
	EventMessageRead EventType = "message:read"
	// EventTypingStart peer started composing
	EventTypingStart EventType = "typing:start"
	// EventTypingStop peer stopped composing
	EventTypingStop EventType = "typing:stop"
	// EventUserOnline broadcast presence change
	EventUserOnline EventType = "user:online"
	// EventUserOffline broadcast presence change
	EventUserOffline EventType = "user:offline"
)

// RegisterPayload payload of register
type RegisterPayload struct {
	UserID string `json:"user_id"`
}

// SendPayload payload of message:send
type SendPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// ErrorPayload payload of message:error
type ErrorPayload struct {
	Error string `json:"error"`
}

// ReadPayload payload of message:read. UserID is the original sender to
// notify and is only present on the client-to-server direction.
type ReadPayload struct {
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id,omitempty"`
}

// TypingPayload payload of typing:start / typing:stop. To is only present
// on the client-to-server direction.
type TypingPayload struct {
	From string `json:"from"`
	To   string `json:"to,omitempty"`
}

// PresencePayload payload of user:online / user:offline
type PresencePayload struct {
	UserID string `json:"user_id"`
}

// Event is the closed set of things that can travel over the websocket.
// Exactly one payload field is set, matching Type.
type Event struct {
	Type EventType

	Register *RegisterPayload
	Send     *SendPayload
	Message  *Message // message:sent and message:new
	Error    *ErrorPayload
	Read     *ReadPayload
	Typing   *TypingPayload
	Presence *PresencePayload
}

// envelope wire shape of an event
type envelope struct {
	Event   EventType       `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode marshal the event into its wire envelope
func (e Event) Encode() ([]byte, error) {
	var payload interface{}
	switch e.Type {
	case EventRegister:
		payload = e.Register
	case EventMessageSend:
		payload = e.Send
	case EventMessageSent, EventMessageNew:
		payload = e.Message
	case EventMessageError:
		payload = e.Error
	case EventMessageRead:
		payload = e.Read
	case EventTypingStart, EventTypingStop:
		payload = e.Typing
	case EventUserOnline, EventUserOffline:
		payload = e.Presence
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Event: e.Type, Payload: raw})
}

// DecodeEvent parse and validate one wire envelope. Decoding happens once
// at the transport boundary; everything past this point works with the
// typed payload.
func DecodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("malformed event envelope: %w", err)
	}

	ev := Event{Type: env.Event}
	var err error
	switch env.Event {
	case EventRegister:
		ev.Register = &RegisterPayload{}
		err = json.Unmarshal(env.Payload, ev.Register)
	case EventMessageSend:
		ev.Send = &SendPayload{}
		err = json.Unmarshal(env.Payload, ev.Send)
	case EventMessageSent, EventMessageNew:
		ev.Message = &Message{}
		err = json.Unmarshal(env.Payload, ev.Message)
	case EventMessageError:
		ev.Error = &ErrorPayload{}
		err = json.Unmarshal(env.Payload, ev.Error)
	case EventMessageRead:
		ev.Read = &ReadPayload{}
		err = json.Unmarshal(env.Payload, ev.Read)
	case EventTypingStart, EventTypingStop:
		ev.Typing = &TypingPayload{}
		err = json.Unmarshal(env.Payload, ev.Typing)
	case EventUserOnline, EventUserOffline:
		ev.Presence = &PresencePayload{}
		err = json.Unmarshal(env.Payload, ev.Presence)
	default:
		return Event{}, fmt.Errorf("unknown event type %q", env.Event)
	}
	if err != nil {
		return Event{}, fmt.Errorf("malformed %s payload: %w", env.Event, err)
	}

	return ev, nil
}
