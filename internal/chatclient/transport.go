package chatclient

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pairchat/internal/chat/domain"
	"pairchat/pkg/logger"
)

const (
	reconnectDelay    = time.Second
	reconnectAttempts = 5
)

// ErrTransportClosed the connection is gone and reconnection has given up
var ErrTransportClosed = errors.New("transport closed")

// EventHandler receives every decoded server event
type EventHandler func(ev domain.Event)

// EventSender typed client-to-server operations, implemented by Transport
type EventSender interface {
	SendMessage(from, to, text string) error
	MarkRead(messageID, notifyUserID string) error
	StartTyping(from, to string) error
	StopTyping(from, to string) error
}

// Transport owns one logical websocket connection. Reconnection is
// bounded and automatic with a fixed backoff; the cache behind the
// handler is never told a reconnect happened. Events emitted server-side
// while disconnected are lost, messages stay recoverable via history.
type Transport struct {
	url     string
	userID  string
	handler EventHandler

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// Dial connect, register the user and start the read loop
func Dial(url, userID string, handler EventHandler) (*Transport, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}

	t := &Transport{
		url:     url,
		userID:  userID,
		handler: handler,
		conn:    conn,
	}

	if err := t.register(); err != nil {
		conn.Close()
		return nil, err
	}

	go t.readLoop(conn)
	return t, nil
}

// Close shut the transport down for good
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}

// SendMessage dispatch a message:send intent
func (t *Transport) SendMessage(from, to, text string) error {
	return t.send(domain.Event{
		Type: domain.EventMessageSend,
		Send: &domain.SendPayload{From: from, To: to, Text: text},
	})
}

// MarkRead dispatch a message:read request naming the sender to notify
func (t *Transport) MarkRead(messageID, notifyUserID string) error {
	return t.send(domain.Event{
		Type: domain.EventMessageRead,
		Read: &domain.ReadPayload{MessageID: messageID, UserID: notifyUserID},
	})
}

// StartTyping dispatch typing:start
func (t *Transport) StartTyping(from, to string) error {
	return t.send(domain.Event{
		Type:   domain.EventTypingStart,
		Typing: &domain.TypingPayload{From: from, To: to},
	})
}

// StopTyping dispatch typing:stop
func (t *Transport) StopTyping(from, to string) error {
	return t.send(domain.Event{
		Type:   domain.EventTypingStop,
		Typing: &domain.TypingPayload{From: from, To: to},
	})
}

func (t *Transport) register() error {
	return t.send(domain.Event{
		Type:     domain.EventRegister,
		Register: &domain.RegisterPayload{UserID: t.userID},
	})
}

func (t *Transport) send(ev domain.Event) error {
	data, err := ev.Encode()
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.conn == nil {
		return ErrTransportClosed
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		ev, err := domain.DecodeEvent(data)
		if err != nil {
			logger.Log.Errorf("event decode error:", err)
			continue
		}
		t.handler(ev)
	}

	t.mu.Lock()
	closed := t.closed
	t.conn = nil
	t.mu.Unlock()
	if closed {
		return
	}

	t.reconnect()
}

// reconnect bounded retry with a fixed backoff, re-registering once the
// connection is back
func (t *Transport) reconnect() {
	for attempt := 1; attempt <= reconnectAttempts; attempt++ {
		time.Sleep(reconnectDelay)

		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()

		conn, _, err := websocket.DefaultDialer.Dial(t.url, nil)
		if err != nil {
			logger.Log.Warn("websocket reconnect failed",
				zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		t.mu.Lock()
		t.conn = conn
		t.mu.Unlock()

		if err := t.register(); err != nil {
			logger.Log.Errorf("re-register failed:", err)
			conn.Close()
			continue
		}

		logger.Log.Info("websocket reconnected", zap.Int("attempt", attempt))
		go t.readLoop(conn)
		return
	}

	logger.Log.Error("websocket reconnect gave up",
		zap.Int("attempts", reconnectAttempts))
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}
