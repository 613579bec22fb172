package app

import (
	"pairchat/internal/chat/domain"
	"pairchat/pkg/logger"
)

// TypingRelay stateless pass-through of ephemeral typing events. Nothing
// is persisted and the relay never emits a stop on its own; clients pair
// starts with stops themselves.
type TypingRelay struct {
	presence PresenceLookup
	hub      Sender
}

// NewTypingRelay create a TypingRelay
func NewTypingRelay(presence PresenceLookup, hub Sender) *TypingRelay {
	return &TypingRelay{presence: presence, hub: hub}
}

// Start forward typing:start to the recipient, dropped when offline
func (r *TypingRelay) Start(from, to string) {
	r.forward(domain.EventTypingStart, from, to)
}

// Stop forward typing:stop to the recipient, dropped when offline
func (r *TypingRelay) Stop(from, to string) {
	r.forward(domain.EventTypingStop, from, to)
}

func (r *TypingRelay) forward(t domain.EventType, from, to string) {
	connID, ok := r.presence.ConnectionFor(to)
	if !ok {
		return
	}
	if err := r.hub.SendTo(connID, domain.Event{
		Type:   t,
		Typing: &domain.TypingPayload{From: from},
	}); err != nil {
		logger.Log.Errorf("typing write error:", err)
	}
}
