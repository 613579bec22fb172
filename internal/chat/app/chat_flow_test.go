package app

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"pairchat/internal/chat/domain"
)

// memMessageRepository in-memory MessageRepository for flow tests
type memMessageRepository struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (r *memMessageRepository) Insert(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *memMessageRepository) FindByID(_ context.Context, id string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			msg := r.messages[i]
			return &msg, nil
		}
	}
	return nil, nil
}

func (r *memMessageRepository) FindBetween(_ context.Context, userA, userB string) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, msg := range r.messages {
		if msg.IsBetween(userA, userB) {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memMessageRepository) FindLatestBetween(ctx context.Context, userA, userB string) (*domain.Message, error) {
	all, err := r.FindBetween(ctx, userA, userB)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	latest := all[len(all)-1]
	return &latest, nil
}

func (r *memMessageRepository) CountUnread(_ context.Context, from, to string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, msg := range r.messages {
		if msg.From == from && msg.To == to && !msg.Read {
			n++
		}
	}
	return n, nil
}

func (r *memMessageRepository) MarkRead(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			r.messages[i].Read = true
			return true, nil
		}
	}
	return false, nil
}

func (r *memMessageRepository) MarkAllRead(_ context.Context, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].From == from && r.messages[i].To == to {
			r.messages[i].Read = true
		}
	}
	return nil
}

// Full two-user session: connect, exchange, read, disconnect.
func TestChatFlow_TwoUserSession(t *testing.T) {
	ctx := context.Background()
	userA := "user-a"
	userB := "user-b"

	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("UpdatePresence", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	msgRepo := &memMessageRepository{}
	hub := newFakeHub()
	presence := NewPresenceRegistry(mockUserRepo, hub)
	relay := NewMessageRelay(msgRepo, presence, hub)
	typing := NewTypingRelay(presence, hub)

	// both sides come online
	presence.Register(ctx, userA, "conn-a")
	presence.Register(ctx, userB, "conn-b")
	assert.Len(t, hub.broadcastsOf(domain.EventUserOnline), 2)
	assert.True(t, presence.IsOnline(userA))
	assert.True(t, presence.IsOnline(userB))

	// typing indicator ahead of the message
	typing.Start(userA, userB)

	relay.Send(ctx, "conn-a", userA, userB, "hello")
	typing.Stop(userA, userB)

	aEvents := hub.sentTo("conn-a")
	assert.Len(t, aEvents, 1)
	assert.Equal(t, domain.EventMessageSent, aEvents[0].Type)
	msgID := aEvents[0].Message.ID

	bEvents := hub.sentTo("conn-b")
	assert.Len(t, bEvents, 3)
	assert.Equal(t, domain.EventTypingStart, bEvents[0].Type)
	assert.Equal(t, domain.EventMessageNew, bEvents[1].Type)
	assert.Equal(t, msgID, bEvents[1].Message.ID)
	assert.Equal(t, domain.EventTypingStop, bEvents[2].Type)

	unread, err := msgRepo.CountUnread(ctx, userA, userB)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	// recipient reads, sender gets the receipt
	relay.MarkRead(ctx, msgID, userA)
	aEvents = hub.sentTo("conn-a")
	assert.Len(t, aEvents, 2)
	assert.Equal(t, domain.EventMessageRead, aEvents[1].Type)
	assert.Equal(t, msgID, aEvents[1].Read.MessageID)

	unread, err = msgRepo.CountUnread(ctx, userA, userB)
	assert.NoError(t, err)
	assert.Zero(t, unread)

	// recipient drops off; the next message is persisted but not pushed
	presence.Disconnect(ctx, "conn-b")
	assert.Len(t, hub.broadcastsOf(domain.EventUserOffline), 1)

	relay.Send(ctx, "conn-a", userA, userB, "are you there?")
	assert.Len(t, hub.sentTo("conn-b"), 3, "offline recipient gets nothing new")

	history, err := relay.History(ctx, userA, userB)
	assert.NoError(t, err)
	assert.Len(t, history, 2)
	assert.True(t, history[0].Read)
	assert.False(t, history[1].Read)
	assert.True(t, !history[1].CreatedAt.Before(history[0].CreatedAt))
}

// A message sent while the recipient is offline lands in history only;
// once the recipient registers and reads, the sender gets one receipt per
// previously-unread message.
func TestChatFlow_OfflineRecipientCatchUp(t *testing.T) {
	ctx := context.Background()
	userA := "user-a"
	userB := "user-b"

	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("UpdatePresence", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	msgRepo := &memMessageRepository{}
	hub := newFakeHub()
	presence := NewPresenceRegistry(mockUserRepo, hub)
	relay := NewMessageRelay(msgRepo, presence, hub)

	presence.Register(ctx, userA, "conn-a")

	relay.Send(ctx, "conn-a", userA, userB, "hi")
	assert.Len(t, hub.sentTo("conn-a"), 1)
	assert.Equal(t, domain.EventMessageSent, hub.sentTo("conn-a")[0].Type)
	assert.Empty(t, hub.sentTo("conn-b"))

	presence.Register(ctx, userB, "conn-b")
	relay.Send(ctx, "conn-a", userA, userB, "hello")

	bEvents := hub.sentTo("conn-b")
	assert.Len(t, bEvents, 1)
	assert.Equal(t, domain.EventMessageNew, bEvents[0].Type)
	assert.Equal(t, "hello", bEvents[0].Message.Text)

	unread, err := msgRepo.CountUnread(ctx, userA, userB)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	// B catches up via history, both messages present in order
	history, err := relay.History(ctx, userB, userA)
	assert.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, "hi", history[0].Text)
	assert.Equal(t, "hello", history[1].Text)

	// B opens the conversation and marks each unread message
	for _, m := range history {
		relay.MarkRead(ctx, m.ID, userA)
	}

	unread, err = msgRepo.CountUnread(ctx, userA, userB)
	assert.NoError(t, err)
	assert.Zero(t, unread)

	var receipts []domain.Event
	for _, ev := range hub.sentTo("conn-a") {
		if ev.Type == domain.EventMessageRead {
			receipts = append(receipts, ev)
		}
	}
	assert.Len(t, receipts, 2)
	assert.Equal(t, history[0].ID, receipts[0].Read.MessageID)
	assert.Equal(t, history[1].ID, receipts[1].Read.MessageID)
}

// Reconnect before the stale socket closes must keep the user online.
func TestChatFlow_ReconnectKeepsDeliveryWorking(t *testing.T) {
	ctx := context.Background()

	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("UpdatePresence", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	msgRepo := &memMessageRepository{}
	hub := newFakeHub()
	presence := NewPresenceRegistry(mockUserRepo, hub)
	relay := NewMessageRelay(msgRepo, presence, hub)

	presence.Register(ctx, "user-a", "conn-a")
	presence.Register(ctx, "user-b", "conn-b1")
	presence.Register(ctx, "user-b", "conn-b2")
	presence.Disconnect(ctx, "conn-b1")

	assert.True(t, presence.IsOnline("user-b"))
	assert.Empty(t, hub.broadcastsOf(domain.EventUserOffline))

	relay.Send(ctx, "conn-a", "user-a", "user-b", "still with me?")

	assert.Empty(t, hub.sentTo("conn-b1"))
	news := hub.sentTo("conn-b2")
	assert.Len(t, news, 1)
	assert.Equal(t, domain.EventMessageNew, news[0].Type)
}
