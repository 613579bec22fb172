package app

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"pairchat/internal/chat/domain"
)

// MockUserRepository Mock UserRepository
type MockUserRepository struct {
	mock.Mock
}

// CreateUser mock create user
func (m *MockUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// FindByUser mock find user by query
func (m *MockUserRepository) FindByUser(ctx context.Context, userQuery *domain.UserQuery) (*domain.User, error) {
	args := m.Called(ctx, userQuery)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListOthers mock list users except one
func (m *MockUserRepository) ListOthers(ctx context.Context, excludeID string) ([]domain.User, error) {
	args := m.Called(ctx, excludeID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdatePresence mock update online flag and last seen
func (m *MockUserRepository) UpdatePresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error {
	args := m.Called(ctx, userID, online, lastSeen)
	return args.Error(0)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Insert mock insert message
func (m *MockMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindByID mock find message by id
func (m *MockMessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindBetween mock pair history ascending
func (m *MockMessageRepository) FindBetween(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindLatestBetween mock latest message of a pair
func (m *MockMessageRepository) FindLatestBetween(ctx context.Context, userA, userB string) (*domain.Message, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// CountUnread mock unread count from→to
func (m *MockMessageRepository) CountUnread(ctx context.Context, from, to string) (int64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(int64), args.Error(1)
}

// MarkRead mock flip one message to read
func (m *MockMessageRepository) MarkRead(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MarkAllRead mock bulk flip
func (m *MockMessageRepository) MarkAllRead(ctx context.Context, from, to string) error {
	args := m.Called(ctx, from, to)
	return args.Error(0)
}

// fakeHub records every event per connection plus broadcasts, in order
type fakeHub struct {
	mu         sync.Mutex
	sent       map[string][]domain.Event
	broadcasts []domain.Event
}

func newFakeHub() *fakeHub {
	return &fakeHub{sent: make(map[string][]domain.Event)}
}

func (h *fakeHub) SendTo(connID string, ev domain.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent[connID] = append(h.sent[connID], ev)
	return nil
}

func (h *fakeHub) Broadcast(ev domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcasts = append(h.broadcasts, ev)
}

func (h *fakeHub) sentTo(connID string) []domain.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Event(nil), h.sent[connID]...)
}

func (h *fakeHub) broadcastsOf(t domain.EventType) []domain.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []domain.Event
	for _, ev := range h.broadcasts {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// fakePresence fixed user→connection table for relay tests
type fakePresence struct {
	conns map[string]string
}

func (p *fakePresence) IsOnline(userID string) bool {
	_, ok := p.conns[userID]
	return ok
}

func (p *fakePresence) ConnectionFor(userID string) (string, bool) {
	connID, ok := p.conns[userID]
	return connID, ok
}
