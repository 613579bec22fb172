package app

import (
	"context"

	"go.uber.org/zap"

	"pairchat/internal/chat/domain"
	"pairchat/internal/chat/repository"
	"pairchat/pkg/logger"
)

// DirectoryUseCase builds the users-with-chat-info listing the client
// seeds its conversation cache from
type DirectoryUseCase struct {
	userRepo repository.UserRepository
	msgRepo  repository.MessageRepository
}

// NewDirectoryUseCase create a DirectoryUseCase
func NewDirectoryUseCase(userRepo repository.UserRepository, msgRepo repository.MessageRepository) *DirectoryUseCase {
	return &DirectoryUseCase{userRepo: userRepo, msgRepo: msgRepo}
}

// ListUsersWithChatInfo all users except the current one, each with the
// latest message of the pair and the current user's inbound unread count.
// A failed summary lookup degrades that one entry instead of failing the
// whole listing.
func (d *DirectoryUseCase) ListUsersWithChatInfo(ctx context.Context, currentUserID string) ([]domain.UserChatInfo, error) {
	users, err := d.userRepo.ListOthers(ctx, currentUserID)
	if err != nil {
		return nil, err
	}

	infos := make([]domain.UserChatInfo, 0, len(users))
	for _, user := range users {
		info := domain.UserChatInfo{User: user}

		latest, err := d.msgRepo.FindLatestBetween(ctx, currentUserID, user.ID)
		if err != nil {
			logger.Log.Error("latest message lookup failed",
				zap.String("peerID", user.ID), zap.Error(err))
		} else {
			info.LatestMessage = latest
		}

		unread, err := d.msgRepo.CountUnread(ctx, user.ID, currentUserID)
		if err != nil {
			logger.Log.Error("unread count lookup failed",
				zap.String("peerID", user.ID), zap.Error(err))
		} else {
			info.UnreadCount = int(unread)
		}

		infos = append(infos, info)
	}
	return infos, nil
}
