package chatclient

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pairchat/internal/chat/domain"
	"pairchat/pkg/logger"
)

// Conversation per-peer summary consumed by the UI
type Conversation struct {
	PeerID        string
	LatestMessage *domain.Message
	UnreadCount   int
	Typing        bool
}

// provisionalRef one not-yet-acknowledged optimistic message
type provisionalRef struct {
	peerID string
	id     string
}

// SyncCache reconciles optimistic local state with server-confirmed state
// and maintains the conversation summaries. All methods are safe for the
// event handler and UI callers to use concurrently; each reaction runs to
// completion under one lock.
type SyncCache struct {
	selfID string
	api    RestAPI
	sender EventSender

	mu            sync.Mutex
	users         map[string]*domain.User
	messages      map[string][]domain.Message
	loaded        map[string]bool
	inflight      map[string]chan struct{}
	conversations map[string]*Conversation
	online        map[string]struct{}
	provisional   []provisionalRef
	activePeer    string
}

// NewSyncCache create a SyncCache for the given user
func NewSyncCache(selfID string, api RestAPI, sender EventSender) *SyncCache {
	return &SyncCache{
		selfID:        selfID,
		api:           api,
		sender:        sender,
		users:         make(map[string]*domain.User),
		messages:      make(map[string][]domain.Message),
		loaded:        make(map[string]bool),
		inflight:      make(map[string]chan struct{}),
		conversations: make(map[string]*Conversation),
		online:        make(map[string]struct{}),
	}
}

// LoadDirectory seed users and conversation summaries from the directory
// listing. Called once after login.
func (c *SyncCache) LoadDirectory(ctx context.Context) error {
	infos, err := c.api.Users(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, info := range infos {
		user := info.User
		c.users[user.ID] = &user
		if user.Online {
			c.online[user.ID] = struct{}{}
		}
		c.conversations[user.ID] = &Conversation{
			PeerID:        user.ID,
			LatestMessage: info.LatestMessage,
			UnreadCount:   info.UnreadCount,
		}
	}
	return nil
}

// SendMessage append a provisional message immediately and dispatch the
// send intent. The provisional entry is replaced when the message:sent
// acknowledgment arrives; a failed dispatch rolls it back.
func (c *SyncCache) SendMessage(peerID, text string) error {
	msg := domain.Message{
		ID:        "local-" + uuid.New().String(),
		From:      c.selfID,
		To:        peerID,
		Text:      text,
		CreatedAt: time.Now(),
		Read:      false,
	}

	c.mu.Lock()
	c.messages[peerID] = append(c.messages[peerID], msg)
	c.provisional = append(c.provisional, provisionalRef{peerID: peerID, id: msg.ID})
	conv := c.ensureConversation(peerID)
	latest := msg
	conv.LatestMessage = &latest
	conv.Typing = false
	c.mu.Unlock()

	if err := c.sender.SendMessage(c.selfID, peerID, text); err != nil {
		c.mu.Lock()
		c.removeProvisional(peerID, msg.ID)
		c.mu.Unlock()
		return err
	}
	return nil
}

// HandleEvent apply one server event to the cache. Wire this as the
// transport's EventHandler.
func (c *SyncCache) HandleEvent(ev domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case domain.EventMessageSent:
		c.reconcile(*ev.Message)

	case domain.EventMessageNew:
		c.applyInbound(*ev.Message)

	case domain.EventMessageError:
		c.rollbackNewestProvisional()

	case domain.EventMessageRead:
		c.markLocalRead(ev.Read.MessageID)

	case domain.EventUserOnline:
		c.setOnline(ev.Presence.UserID, true)

	case domain.EventUserOffline:
		c.setOnline(ev.Presence.UserID, false)

	case domain.EventTypingStart:
		c.ensureConversation(ev.Typing.From).Typing = true

	case domain.EventTypingStop:
		c.ensureConversation(ev.Typing.From).Typing = false

	default:
		logger.Log.Warn("unexpected event in client cache",
			zap.String("type", string(ev.Type)))
	}
}

// Messages return the cached conversation, fetching history exactly once
// per peer. Concurrent callers for the same uncached peer share a single
// fetch.
func (c *SyncCache) Messages(ctx context.Context, peerID string) ([]domain.Message, error) {
	for {
		c.mu.Lock()
		if c.loaded[peerID] {
			msgs := c.snapshot(peerID)
			c.mu.Unlock()
			return msgs, nil
		}
		if ch, ok := c.inflight[peerID]; ok {
			c.mu.Unlock()
			select {
			case <-ch:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}
		ch := make(chan struct{})
		c.inflight[peerID] = ch
		c.mu.Unlock()

		history, err := c.api.Messages(ctx, peerID)

		c.mu.Lock()
		delete(c.inflight, peerID)
		close(ch)
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		c.mergeHistory(peerID, history)
		c.loaded[peerID] = true
		msgs := c.snapshot(peerID)
		c.mu.Unlock()
		return msgs, nil
	}
}

// OpenConversation mark the conversation active and issue the mark-read
// round trip
func (c *SyncCache) OpenConversation(ctx context.Context, peerID string) error {
	c.mu.Lock()
	c.activePeer = peerID
	c.mu.Unlock()
	return c.MarkConversationRead(ctx, peerID)
}

// CloseConversation clear the active conversation
func (c *SyncCache) CloseConversation() {
	c.mu.Lock()
	c.activePeer = ""
	c.mu.Unlock()
}

// MarkConversationRead reset the unread count, issue the bulk mark-read
// and, for every cached inbound unread message, a per-message mark so the
// peer's UI gets live read ticks (the bulk path emits none).
func (c *SyncCache) MarkConversationRead(ctx context.Context, peerID string) error {
	c.mu.Lock()
	conv := c.ensureConversation(peerID)
	conv.UnreadCount = 0

	var unreadIDs []string
	msgs := c.messages[peerID]
	for i := range msgs {
		if msgs[i].From == peerID && !msgs[i].Read {
			unreadIDs = append(unreadIDs, msgs[i].ID)
			msgs[i].Read = true
		}
	}
	c.mu.Unlock()

	if err := c.api.MarkConversationRead(ctx, peerID); err != nil {
		return err
	}

	for _, id := range unreadIDs {
		if err := c.sender.MarkRead(id, peerID); err != nil {
			logger.Log.Errorf("mark read dispatch failed:", err, zap.String("messageID", id))
		}
	}
	return nil
}

// SetTyping forward the local typing state to the peer
func (c *SyncCache) SetTyping(peerID string, typing bool) error {
	if typing {
		return c.sender.StartTyping(c.selfID, peerID)
	}
	return c.sender.StopTyping(c.selfID, peerID)
}

// Conversations display-ordered snapshot: conversations with a message
// first, newest message first; the rest by online status then name.
func (c *SyncCache) Conversations() []Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Conversation, 0, len(c.conversations))
	for _, conv := range c.conversations {
		out = append(out, *conv)
	}

	sort.SliceStable(out, func(i, j int) bool {
		mi, mj := out[i].LatestMessage, out[j].LatestMessage
		if (mi != nil) != (mj != nil) {
			return mi != nil
		}
		if mi != nil && mj != nil && !mi.CreatedAt.Equal(mj.CreatedAt) {
			return mi.CreatedAt.After(mj.CreatedAt)
		}
		_, oi := c.online[out[i].PeerID]
		_, oj := c.online[out[j].PeerID]
		if oi != oj {
			return oi
		}
		return c.nameOf(out[i].PeerID) < c.nameOf(out[j].PeerID)
	})
	return out
}

// IsOnline check the cached presence state of a user
func (c *SyncCache) IsOnline(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.online[userID]
	return ok
}

// User return the cached user record
func (c *SyncCache) User(userID string) (domain.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[userID]
	if !ok {
		return domain.User{}, false
	}
	return *u, true
}

// reconcile replace the most recent provisional entry with equal text by
// the authoritative message. Text equality is a heuristic: it holds as
// long as no two identical-text messages to the same peer are in flight
// at once.
func (c *SyncCache) reconcile(msg domain.Message) {
	peerID := msg.PeerOf(c.selfID)
	msgs := c.messages[peerID]

	for i := len(msgs) - 1; i >= 0; i-- {
		if !c.isProvisional(msgs[i].ID) || msgs[i].Text != msg.Text {
			continue
		}
		provisionalID := msgs[i].ID
		msgs[i] = msg
		c.dropProvisionalRef(provisionalID)

		conv := c.ensureConversation(peerID)
		if conv.LatestMessage != nil && conv.LatestMessage.ID == provisionalID {
			latest := msg
			conv.LatestMessage = &latest
		}
		return
	}

	// no provisional counterpart, keep the authoritative copy anyway
	c.insertOrdered(peerID, msg)
}

// applyInbound append a message:new to the cache in createdAt order
func (c *SyncCache) applyInbound(msg domain.Message) {
	peerID := msg.PeerOf(c.selfID)
	c.insertOrdered(peerID, msg)

	conv := c.ensureConversation(peerID)
	latest := msg
	conv.LatestMessage = &latest
	conv.Typing = false
	if msg.From != c.selfID && peerID != c.activePeer {
		conv.UnreadCount++
	}
}

func (c *SyncCache) rollbackNewestProvisional() {
	if len(c.provisional) == 0 {
		return
	}
	ref := c.provisional[len(c.provisional)-1]
	c.removeProvisional(ref.peerID, ref.id)
}

func (c *SyncCache) markLocalRead(messageID string) {
	for peerID := range c.messages {
		m := c.findMessage(peerID, messageID)
		if m == nil {
			continue
		}
		m.Read = true
		conv := c.ensureConversation(peerID)
		if conv.LatestMessage != nil && conv.LatestMessage.ID == messageID {
			conv.LatestMessage.Read = true
		}
		return
	}
}

func (c *SyncCache) setOnline(userID string, online bool) {
	if online {
		c.online[userID] = struct{}{}
	} else {
		delete(c.online, userID)
	}
	if u, ok := c.users[userID]; ok {
		u.Online = online
		if !online {
			u.LastSeen = time.Now()
		}
	}
}

// mergeHistory combine fetched history with entries that arrived live or
// optimistically before the fetch resolved, deduped by id
func (c *SyncCache) mergeHistory(peerID string, history []domain.Message) {
	seen := make(map[string]struct{}, len(history))
	merged := make([]domain.Message, 0, len(history)+len(c.messages[peerID]))
	for _, m := range history {
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	for _, m := range c.messages[peerID] {
		if _, ok := seen[m.ID]; !ok {
			merged = append(merged, m)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	c.messages[peerID] = merged

	if len(merged) > 0 {
		conv := c.ensureConversation(peerID)
		if conv.LatestMessage == nil {
			latest := merged[len(merged)-1]
			conv.LatestMessage = &latest
		}
	}
}

func (c *SyncCache) ensureConversation(peerID string) *Conversation {
	conv, ok := c.conversations[peerID]
	if !ok {
		conv = &Conversation{PeerID: peerID}
		c.conversations[peerID] = conv
	}
	return conv
}

func (c *SyncCache) insertOrdered(peerID string, msg domain.Message) {
	msgs := append(c.messages[peerID], msg)
	for i := len(msgs) - 1; i > 0; i-- {
		if !msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			break
		}
		msgs[i], msgs[i-1] = msgs[i-1], msgs[i]
	}
	c.messages[peerID] = msgs
}

func (c *SyncCache) findMessage(peerID, id string) *domain.Message {
	msgs := c.messages[peerID]
	for i := range msgs {
		if msgs[i].ID == id {
			return &msgs[i]
		}
	}
	return nil
}

func (c *SyncCache) isProvisional(id string) bool {
	for _, ref := range c.provisional {
		if ref.id == id {
			return true
		}
	}
	return false
}

func (c *SyncCache) dropProvisionalRef(id string) {
	for i, ref := range c.provisional {
		if ref.id == id {
			c.provisional = append(c.provisional[:i], c.provisional[i+1:]...)
			return
		}
	}
}

// removeProvisional roll an optimistic entry back out of the cache
func (c *SyncCache) removeProvisional(peerID, id string) {
	c.dropProvisionalRef(id)

	msgs := c.messages[peerID]
	for i := range msgs {
		if msgs[i].ID == id {
			c.messages[peerID] = append(msgs[:i], msgs[i+1:]...)
			break
		}
	}

	conv := c.ensureConversation(peerID)
	if conv.LatestMessage != nil && conv.LatestMessage.ID == id {
		conv.LatestMessage = nil
		if rest := c.messages[peerID]; len(rest) > 0 {
			latest := rest[len(rest)-1]
			conv.LatestMessage = &latest
		}
	}
}

func (c *SyncCache) snapshot(peerID string) []domain.Message {
	msgs := c.messages[peerID]
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out
}

func (c *SyncCache) nameOf(userID string) string {
	if u, ok := c.users[userID]; ok {
		return u.Name
	}
	return ""
}
