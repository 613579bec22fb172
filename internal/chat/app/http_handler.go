package app

import (
	"github.com/gofiber/fiber/v2"

	"pairchat/internal/chat/domain"
	"pairchat/pkg/middlewares"
)

// ChatHTTPHandler REST surface: auth, user directory, history, bulk mark-read
type ChatHTTPHandler struct {
	authUC    AuthUseCase
	directory *DirectoryUseCase
	relay     *MessageRelay
}

// NewChatHTTPHandler create ChatHTTPHandler
func NewChatHTTPHandler(authUC AuthUseCase, directory *DirectoryUseCase, relay *MessageRelay) *ChatHTTPHandler {
	return &ChatHTTPHandler{
		authUC:    authUC,
		directory: directory,
		relay:     relay,
	}
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Register POST /auth/register
func (h *ChatHTTPHandler) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	t, user, err := h.authUC.Register(c.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(authResponse{Token: t, User: user})
}

// Login POST /auth/login
func (h *ChatHTTPHandler) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	t, user, err := h.authUC.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(authResponse{Token: t, User: user})
}

// Me GET /auth/me
func (h *ChatHTTPHandler) Me(c *fiber.Ctx) error {
	userID := c.Locals(middlewares.TokenUserID).(string)

	user, err := h.authUC.FindUser(c.Context(), &domain.UserQuery{ID: &userID})
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}
	return c.JSON(user)
}

// Users GET /auth/users
func (h *ChatHTTPHandler) Users(c *fiber.Ctx) error {
	userID := c.Locals(middlewares.TokenUserID).(string)

	infos, err := h.directory.ListUsersWithChatInfo(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
	}
	return c.JSON(infos)
}

// History GET /messages/:peerID
func (h *ChatHTTPHandler) History(c *fiber.Ctx) error {
	userID := c.Locals(middlewares.TokenUserID).(string)
	peerID := c.Params("peerID")

	msgs, err := h.relay.History(c.Context(), userID, peerID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return c.JSON(msgs)
}

// MarkRead POST /messages/:peerID/mark-read
func (h *ChatHTTPHandler) MarkRead(c *fiber.Ctx) error {
	userID := c.Locals(middlewares.TokenUserID).(string)
	peerID := c.Params("peerID")

	if err := h.relay.MarkAllRead(c.Context(), userID, peerID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
	}
	return c.JSON(fiber.Map{"success": true})
}
