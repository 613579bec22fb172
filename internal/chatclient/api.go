package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"pairchat/internal/chat/domain"
)

// ErrUnauthorized the bearer credential is missing or invalid
var ErrUnauthorized = errors.New("unauthorized")

// RestAPI the server's REST surface as seen by the cache
type RestAPI interface {
	Me(ctx context.Context) (*domain.User, error)
	Users(ctx context.Context) ([]domain.UserChatInfo, error)
	Messages(ctx context.Context, peerID string) ([]domain.Message, error)
	MarkConversationRead(ctx context.Context, peerID string) error
}

// RestClient bearer-authenticated client for the chat service REST surface
type RestClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewRestClient create a RestClient
func NewRestClient(baseURL, token string) *RestClient {
	return &RestClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{},
	}
}

// Me fetch the current user
func (c *RestClient) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Users fetch all other users with their conversation summaries
func (c *RestClient) Users(ctx context.Context) ([]domain.UserChatInfo, error) {
	var infos []domain.UserChatInfo
	if err := c.do(ctx, http.MethodGet, "/auth/users", nil, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// Messages fetch the full pair history, ascending by time
func (c *RestClient) Messages(ctx context.Context, peerID string) ([]domain.Message, error) {
	var msgs []domain.Message
	if err := c.do(ctx, http.MethodGet, "/messages/"+peerID, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkConversationRead bulk-flip peer→me unread messages to read
func (c *RestClient) MarkConversationRead(ctx context.Context, peerID string) error {
	return c.do(ctx, http.MethodPost, "/messages/"+peerID+"/mark-read", struct{}{}, nil)
}

func (c *RestClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody *bytes.Buffer = bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
