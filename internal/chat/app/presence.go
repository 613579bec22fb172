package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"pairchat/internal/chat/domain"
	"pairchat/internal/chat/repository"
	"pairchat/pkg/logger"
)

// PresenceLookup read-only presence queries used by the relays for
// fan-out decisions
type PresenceLookup interface {
	IsOnline(userID string) bool
	ConnectionFor(userID string) (string, bool)
}

// PresenceRegistry tracks which user currently owns which live connection.
// One live entry per user: a later Register for the same user silently
// supersedes the earlier one.
type PresenceRegistry struct {
	mu       sync.Mutex
	userConn map[string]string // userID → connID
	connUser map[string]string // connID → userID, keeps disconnect O(1)

	userRepo repository.UserRepository
	hub      Sender
}

// NewPresenceRegistry create a PresenceRegistry
func NewPresenceRegistry(userRepo repository.UserRepository, hub Sender) *PresenceRegistry {
	return &PresenceRegistry{
		userConn: make(map[string]string),
		connUser: make(map[string]string),
		userRepo: userRepo,
		hub:      hub,
	}
}

// Register installs or overwrites the mapping for userID, flips the
// persisted record to online and broadcasts user:online. Re-registering
// is allowed any number of times and re-broadcasts each time.
func (p *PresenceRegistry) Register(ctx context.Context, userID, connID string) {
	p.mu.Lock()
	if old, ok := p.userConn[userID]; ok {
		// superseded connection no longer owns the user
		delete(p.connUser, old)
	}
	p.userConn[userID] = connID
	p.connUser[connID] = userID
	p.mu.Unlock()

	// presence is best-effort: a failed status write never blocks the broadcast
	if err := p.userRepo.UpdatePresence(ctx, userID, true, time.Now()); err != nil {
		logger.Log.Error("presence online update failed",
			zap.String("userID", userID), zap.Error(err))
	}

	p.hub.Broadcast(domain.Event{
		Type:     domain.EventUserOnline,
		Presence: &domain.PresencePayload{UserID: userID},
	})
}

// Disconnect removes the mapping owned by connID, flips the persisted
// record to offline and broadcasts user:offline. A connection that never
// registered, or was superseded by a later registration, is a no-op so a
// reconnected user is never flagged offline by a stale connection.
func (p *PresenceRegistry) Disconnect(ctx context.Context, connID string) {
	p.mu.Lock()
	userID, ok := p.connUser[connID]
	if ok {
		delete(p.connUser, connID)
		delete(p.userConn, userID)
	}
	p.mu.Unlock()
	if !ok {
		return
	}

	if err := p.userRepo.UpdatePresence(ctx, userID, false, time.Now()); err != nil {
		logger.Log.Error("presence offline update failed",
			zap.String("userID", userID), zap.Error(err))
	}

	p.hub.Broadcast(domain.Event{
		Type:     domain.EventUserOffline,
		Presence: &domain.PresencePayload{UserID: userID},
	})
}

// IsOnline check the user currently owns a live connection
func (p *PresenceRegistry) IsOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.userConn[userID]
	return ok
}

// ConnectionFor look up the live connection for a user
func (p *PresenceRegistry) ConnectionFor(userID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	connID, ok := p.userConn[userID]
	return connID, ok
}
