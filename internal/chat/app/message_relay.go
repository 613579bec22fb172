package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pairchat/internal/chat/domain"
	"pairchat/internal/chat/repository"
	"pairchat/pkg/logger"
)

// MessageRelay validates, persists and fans out chat messages, acks and
// read receipts
type MessageRelay struct {
	msgRepo  repository.MessageRepository
	presence PresenceLookup
	hub      Sender
}

// NewMessageRelay create a MessageRelay
func NewMessageRelay(msgRepo repository.MessageRepository, presence PresenceLookup, hub Sender) *MessageRelay {
	return &MessageRelay{
		msgRepo:  msgRepo,
		presence: presence,
		hub:      hub,
	}
}

// Send persist a new message and fan it out. The sender always learns the
// outcome on its own connection: message:error on rejection, otherwise
// message:sent carrying the server-assigned id and timestamp. The
// recipient gets message:new only while registered; offline recipients
// pick the message up from history, there is no redelivery queue.
func (r *MessageRelay) Send(ctx context.Context, connID, from, to, text string) {
	if strings.TrimSpace(text) == "" {
		r.sendError(connID, "message text is empty")
		return
	}

	msg := &domain.Message{
		ID:        uuid.New().String(),
		From:      from,
		To:        to,
		Text:      text,
		CreatedAt: time.Now(),
		Read:      false,
	}

	if err := r.msgRepo.Insert(ctx, msg); err != nil {
		logger.Log.Error("message insert failed",
			zap.String("from", from), zap.String("to", to), zap.Error(err))
		r.sendError(connID, "Failed to send message")
		return
	}

	if err := r.hub.SendTo(connID, domain.Event{
		Type:    domain.EventMessageSent,
		Message: msg,
	}); err != nil {
		logger.Log.Errorf("message:sent write error:", err)
	}

	if recipientConn, ok := r.presence.ConnectionFor(to); ok {
		if err := r.hub.SendTo(recipientConn, domain.Event{
			Type:    domain.EventMessageNew,
			Message: msg,
		}); err != nil {
			logger.Log.Errorf("message:new write error:", err)
		}
	}
}

// MarkRead flip one message to read and, when the original sender is
// online, push the read receipt. Marking twice is a no-op; an unknown id
// is only logged so idempotent client retries stay safe.
func (r *MessageRelay) MarkRead(ctx context.Context, messageID, notifyUserID string) {
	matched, err := r.msgRepo.MarkRead(ctx, messageID)
	if err != nil {
		logger.Log.Error("mark read failed",
			zap.String("messageID", messageID), zap.Error(err))
		return
	}
	if !matched {
		logger.Log.Warn("mark read for unknown message",
			zap.String("messageID", messageID))
		return
	}

	if senderConn, ok := r.presence.ConnectionFor(notifyUserID); ok {
		if err := r.hub.SendTo(senderConn, domain.Event{
			Type: domain.EventMessageRead,
			Read: &domain.ReadPayload{MessageID: messageID},
		}); err != nil {
			logger.Log.Errorf("message:read write error:", err)
		}
	}
}

// MarkAllRead bulk-flip every unread message from peerB to peerA. Used
// when a conversation is opened; emits no per-message receipts, the
// per-message path is a separate entry point.
func (r *MessageRelay) MarkAllRead(ctx context.Context, peerA, peerB string) error {
	return r.msgRepo.MarkAllRead(ctx, peerB, peerA)
}

// History full message history between two users, ascending by time
func (r *MessageRelay) History(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	return r.msgRepo.FindBetween(ctx, userA, userB)
}

func (r *MessageRelay) sendError(connID, errMsg string) {
	if err := r.hub.SendTo(connID, domain.Event{
		Type:  domain.EventMessageError,
		Error: &domain.ErrorPayload{Error: errMsg},
	}); err != nil {
		logger.Log.Errorf("message:error write error:", err)
	}
}
