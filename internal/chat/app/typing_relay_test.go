package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pairchat/internal/chat/domain"
)

func TestTypingRelay_ForwardToOnlineRecipient(t *testing.T) {
	hub := newFakeHub()
	relay := NewTypingRelay(&fakePresence{conns: map[string]string{"user-b": "conn-b"}}, hub)

	relay.Start("user-a", "user-b")
	relay.Stop("user-a", "user-b")

	events := hub.sentTo("conn-b")
	assert.Len(t, events, 2)
	assert.Equal(t, domain.EventTypingStart, events[0].Type)
	assert.Equal(t, domain.EventTypingStop, events[1].Type)
	assert.Equal(t, "user-a", events[0].Typing.From)
	// the recipient address never travels back out
	assert.Empty(t, events[0].Typing.To)
}

func TestTypingRelay_DroppedWhenOffline(t *testing.T) {
	hub := newFakeHub()
	relay := NewTypingRelay(&fakePresence{conns: map[string]string{}}, hub)

	relay.Start("user-a", "user-b")
	relay.Stop("user-a", "user-b")

	assert.Empty(t, hub.sent)
	assert.Empty(t, hub.broadcasts)
}
