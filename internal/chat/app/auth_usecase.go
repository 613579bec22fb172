package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pairchat/internal/chat/domain"
	"pairchat/internal/chat/repository"
	"pairchat/pkg/config"
	"pairchat/pkg/database"
	"pairchat/pkg/encrypt"
	errprocess "pairchat/pkg/err"
	"pairchat/pkg/logger"
	t_token "pairchat/pkg/token"
)

// AuthUseCase credential issuance and user lookup
type AuthUseCase interface {
	Register(ctx context.Context, name, email, password string) (string, *domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	FindUser(ctx context.Context, param *domain.UserQuery) (*domain.User, error)
}

type authUseCase struct {
	userRepo   repository.UserRepository
	sessionTTL time.Duration
	redisRepo  database.RedisRepository[domain.Session]
}

// NewAuthUseCase create an AuthUseCase
func NewAuthUseCase(userRepo repository.UserRepository,
	sessionTTL time.Duration,
	redisRepo database.RedisRepository[domain.Session],
) AuthUseCase {
	return &authUseCase{
		userRepo:   userRepo,
		sessionTTL: sessionTTL,
		redisRepo:  redisRepo,
	}
}

// Register create a user and issue its first token
func (a *authUseCase) Register(ctx context.Context, name, email, password string) (string, *domain.User, error) {
	if _, err := a.userRepo.FindByUser(ctx, &domain.UserQuery{Email: &email}); err == nil {
		return "", nil, errprocess.Set(fmt.Sprintf("email already exists: %s", email))
	}

	pw, err := encrypt.HashPassword(password)
	if err != nil {
		return "", nil, err
	}

	user := domain.User{
		ID:       uuid.New().String(),
		Name:     name,
		Email:    email,
		Password: pw,
		LastSeen: time.Now(),
	}

	if err := a.userRepo.CreateUser(ctx, &user); err != nil {
		return "", nil, err
	}

	t, err := a.issueSession(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}
	return t, &user, nil
}

// Login verify credentials and issue a token
func (a *authUseCase) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := a.userRepo.FindByUser(ctx, &domain.UserQuery{Email: &email})
	if err != nil {
		return "", nil, errprocess.Set(fmt.Sprintf("login for unknown email: %s", email))
	}

	if err = user.IsPasswordMatch(password); err != nil {
		return "", nil, err
	}

	t, err := a.issueSession(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}
	return t, user, nil
}

// FindUser look up a user by id or email
func (a *authUseCase) FindUser(ctx context.Context, param *domain.UserQuery) (*domain.User, error) {
	return a.userRepo.FindByUser(ctx, param)
}

func (a *authUseCase) issueSession(ctx context.Context, userID string) (string, error) {
	t, err := t_token.GenerateJWT(userID, config.EnvConfig.ChatService)
	if err != nil {
		return "", err
	}

	now := time.Now()
	session := domain.Session{
		Token:     t,
		UserID:    userID,
		CreatedAt: now,
		ExpiredAt: now.Add(a.sessionTTL),
	}
	if err := a.redisRepo.Set(ctx, userID, session, a.sessionTTL); err != nil {
		logger.Log.Errorf("session store failed:", err, zap.String("userID", userID))
	}

	return t, nil
}
