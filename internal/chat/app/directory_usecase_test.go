package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pairchat/internal/chat/domain"
)

func TestDirectoryUseCase_ListUsersWithChatInfo(t *testing.T) {
	ctx := context.Background()
	me := "me"

	latest := &domain.Message{ID: "msg-1", From: "alice", To: me, Text: "hi", CreatedAt: time.Now()}

	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("ListOthers", ctx, me).Return([]domain.User{
		{ID: "alice", Name: "Alice"},
		{ID: "bob", Name: "Bob"},
	}, nil)

	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("FindLatestBetween", ctx, me, "alice").Return(latest, nil)
	mockMsgRepo.On("CountUnread", ctx, "alice", me).Return(int64(3), nil)
	mockMsgRepo.On("FindLatestBetween", ctx, me, "bob").Return(nil, nil)
	mockMsgRepo.On("CountUnread", ctx, "bob", me).Return(int64(0), nil)

	uc := NewDirectoryUseCase(mockUserRepo, mockMsgRepo)

	infos, err := uc.ListUsersWithChatInfo(ctx, me)
	assert.NoError(t, err)
	assert.Len(t, infos, 2)

	assert.Equal(t, "alice", infos[0].ID)
	assert.Equal(t, "msg-1", infos[0].LatestMessage.ID)
	assert.Equal(t, 3, infos[0].UnreadCount)

	assert.Equal(t, "bob", infos[1].ID)
	assert.Nil(t, infos[1].LatestMessage)
	assert.Zero(t, infos[1].UnreadCount)
}

// one peer's summary lookups failing must not sink the listing
func TestDirectoryUseCase_SummaryFailureDegrades(t *testing.T) {
	ctx := context.Background()
	me := "me"

	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("ListOthers", ctx, me).Return([]domain.User{
		{ID: "alice", Name: "Alice"},
	}, nil)

	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("FindLatestBetween", ctx, me, "alice").Return(nil, errors.New("store down"))
	mockMsgRepo.On("CountUnread", ctx, "alice", me).Return(int64(0), errors.New("store down"))

	uc := NewDirectoryUseCase(mockUserRepo, mockMsgRepo)

	infos, err := uc.ListUsersWithChatInfo(ctx, me)
	assert.NoError(t, err)
	assert.Len(t, infos, 1)
	assert.Nil(t, infos[0].LatestMessage)
	assert.Zero(t, infos[0].UnreadCount)
}

func TestDirectoryUseCase_ListFailure(t *testing.T) {
	ctx := context.Background()

	mockUserRepo := new(MockUserRepository)
	mockUserRepo.On("ListOthers", ctx, "me").Return(nil, errors.New("db down"))

	uc := NewDirectoryUseCase(mockUserRepo, new(MockMessageRepository))

	_, err := uc.ListUsersWithChatInfo(ctx, "me")
	assert.Error(t, err)
}
