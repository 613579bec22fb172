package domain

import (
	"time"

	"pairchat/pkg/encrypt"
)

// User represents a registered chat user
type User struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"-"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

// IsPasswordMatch check input password against the stored hash
func (u *User) IsPasswordMatch(inputPwd string) error {
	return encrypt.CheckPassword(u.Password, inputPwd)
}

// UserQuery join conditions are used to query users
type UserQuery struct {
	ID    *string `db:"id"`
	Email *string `db:"email"`
}

// UserChatInfo a user in the directory listing together with the
// conversation summary the client seeds its cache from
type UserChatInfo struct {
	User
	LatestMessage *Message `json:"latest_message,omitempty"`
	UnreadCount   int      `json:"unread_count"`
}

// Session represents a logged-in user session kept in redis
type Session struct {
	Token     string    `json:"Token"`
	UserID    string    `json:"UserID"`
	CreatedAt time.Time `json:"CreatedAt"`
	ExpiredAt time.Time `json:"ExpiredAt"`
}

// IsExpired check the session is past its TTL
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiredAt)
}
