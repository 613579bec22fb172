package app

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"pairchat/internal/chat/domain"
)

// recordConn WSConn capturing written frames
type recordConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *recordConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, data)
	return nil
}

func (c *recordConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestHub_SendToAndBroadcast(t *testing.T) {
	hub := NewHub()
	connA := &recordConn{}
	connB := &recordConn{}
	hub.Add("conn-a", connA)
	hub.Add("conn-b", connB)

	err := hub.SendTo("conn-a", domain.Event{
		Type:  domain.EventMessageError,
		Error: &domain.ErrorPayload{Error: "nope"},
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, connA.count())
	assert.Zero(t, connB.count())

	ev, err := domain.DecodeEvent(connA.frames[0])
	assert.NoError(t, err)
	assert.Equal(t, domain.EventMessageError, ev.Type)
	assert.Equal(t, "nope", ev.Error.Error)

	hub.Broadcast(domain.Event{
		Type:     domain.EventUserOnline,
		Presence: &domain.PresencePayload{UserID: "user-1"},
	})
	assert.Equal(t, 2, connA.count())
	assert.Equal(t, 1, connB.count())
}

func TestHub_SendToUnknownConnection(t *testing.T) {
	hub := NewHub()
	err := hub.SendTo("gone", domain.Event{
		Type:     domain.EventUserOnline,
		Presence: &domain.PresencePayload{UserID: "user-1"},
	})
	assert.NoError(t, err, "racing a disconnect must stay harmless")
}

func TestHub_RemoveStopsDelivery(t *testing.T) {
	hub := NewHub()
	conn := &recordConn{}
	hub.Add("conn-a", conn)
	hub.Remove("conn-a")

	assert.NoError(t, hub.SendTo("conn-a", domain.Event{
		Type:     domain.EventUserOffline,
		Presence: &domain.PresencePayload{UserID: "user-1"},
	}))
	hub.Broadcast(domain.Event{
		Type:     domain.EventUserOffline,
		Presence: &domain.PresencePayload{UserID: "user-1"},
	})
	assert.Zero(t, conn.count())
}
