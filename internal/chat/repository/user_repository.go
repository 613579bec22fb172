package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pairchat/internal/chat/domain"
)

// ErrUserNotFound no user matched the query
var ErrUserNotFound = errors.New("no user found with given criteria")

// UserRepository definition get User info
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	FindByUser(ctx context.Context, userQuery *domain.UserQuery) (*domain.User, error)
	ListOthers(ctx context.Context, excludeID string) ([]domain.User, error)
	UpdatePresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error
}

type userRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository create a UserRepository
func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO users(id, name, email, password, online, last_seen) VALUES ($1, $2, $3, $4, $5, $6)",
		user.ID, user.Name, user.Email, user.Password, user.Online, user.LastSeen)
	return err
}

func (r *userRepository) FindByUser(ctx context.Context, userQuery *domain.UserQuery) (*domain.User, error) {
	queryStr := "SELECT id, name, email, password, online, last_seen FROM users WHERE 1=1"
	params := []interface{}{}
	paramCount := 1

	if userQuery.Email != nil {
		queryStr += fmt.Sprintf(" AND email = $%d", paramCount)
		params = append(params, *userQuery.Email)
		paramCount++
	}
	if userQuery.ID != nil {
		queryStr += fmt.Sprintf(" AND id = $%d", paramCount)
		params = append(params, *userQuery.ID)
		paramCount++
	}

	row := r.db.QueryRow(ctx, queryStr, params...)
	var user domain.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.Online, &user.LastSeen)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) ListOthers(ctx context.Context, excludeID string) ([]domain.User, error) {
	rows, err := r.db.Query(ctx,
		"SELECT id, name, email, password, online, last_seen FROM users WHERE id <> $1 ORDER BY name",
		excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.Online, &user.LastSeen); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *userRepository) UpdatePresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error {
	_, err := r.db.Exec(ctx,
		"UPDATE users SET online = $1, last_seen = $2 WHERE id = $3",
		online, lastSeen, userID)
	return err
}
