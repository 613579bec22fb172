package app

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pairchat/internal/chat/domain"
	"pairchat/pkg/logger"
	"pairchat/pkg/middlewares"
)

const pingInterval = 10 * time.Minute

// ChatWebsocketHandler connection entry point wiring the registry and the
// relays to one live websocket
type ChatWebsocketHandler struct {
	hub      *Hub
	presence *PresenceRegistry
	relay    *MessageRelay
	typing   *TypingRelay
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	hub *Hub,
	presence *PresenceRegistry,
	relay *MessageRelay,
	typing *TypingRelay,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		hub:      hub,
		presence: presence,
		relay:    relay,
		typing:   typing,
	}
}

// HandleConnection run the read loop for one websocket connection. Each
// inbound event is handled to completion before the next read; the only
// shared state different connections touch concurrently is the registry.
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	tokenUser, _ := conn.Locals(middlewares.TokenUserID).(string)
	connID := uuid.New().String()
	logger.Log.Info("websocket connected",
		zap.String("connID", connID), zap.String("tokenUserID", tokenUser))

	ticker := time.NewTicker(pingInterval)
	ctxClose, cancel := context.WithCancel(context.Background())

	h.hub.Add(connID, conn)

	defer func() {
		ticker.Stop()
		cancel()
		h.hub.Remove(connID)
		h.presence.Disconnect(ctx, connID)
		logger.Log.Info("websocket closed", zap.String("connID", connID))
		conn.Close()
	}()

	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("websocket close received:", conn.RemoteAddr())
		return nil
	})

	conn.SetPongHandler(func(appData string) error {
		return nil
	})

	// keepalive ping
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
					logger.Log.Errorf("ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Info("connection closed", zap.String("connID", connID))
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		h.dispatch(ctx, connID, message)
	}
}

// dispatch decode one envelope and route it. The payload is validated
// exactly once here; relays receive typed values.
func (h *ChatWebsocketHandler) dispatch(ctx context.Context, connID string, raw []byte) {
	ev, err := domain.DecodeEvent(raw)
	if err != nil {
		logger.Log.Errorf("event decode error:", err, zap.String("connID", connID))
		h.sendError(connID, "malformed event")
		return
	}

	switch ev.Type {
	case domain.EventRegister:
		h.presence.Register(ctx, ev.Register.UserID, connID)

	case domain.EventMessageSend:
		h.relay.Send(ctx, connID, ev.Send.From, ev.Send.To, ev.Send.Text)

	case domain.EventMessageRead:
		h.relay.MarkRead(ctx, ev.Read.MessageID, ev.Read.UserID)

	case domain.EventTypingStart:
		h.typing.Start(ev.Typing.From, ev.Typing.To)

	case domain.EventTypingStop:
		h.typing.Stop(ev.Typing.From, ev.Typing.To)

	default:
		// server-to-client kinds arriving inbound
		h.sendError(connID, "unknown event")
	}
}

func (h *ChatWebsocketHandler) sendError(connID, errMsg string) {
	if err := h.hub.SendTo(connID, domain.Event{
		Type:  domain.EventMessageError,
		Error: &domain.ErrorPayload{Error: errMsg},
	}); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}
