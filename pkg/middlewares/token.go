package middlewares

import (
	"strings"

	t_token "pairchat/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	// QueryToken token in query name, used by the websocket upgrade
	QueryToken = "auth"

	// TokenUserID get user id from token, set c.locals name
	TokenUserID = "UserID"
)

// JWTMiddleware validates JWT in the Authorization header or the auth query param
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// REST clients send "Authorization: Bearer <token>"
		tokenStr := c.Get(fiber.HeaderAuthorization)
		if strings.HasPrefix(tokenStr, "Bearer ") {
			tokenStr = tokenStr[7:]
		}

		// websocket clients can't set headers on upgrade, fall back to query
		if tokenStr == "" {
			tokenStr = c.Query(QueryToken)
		}

		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := t_token.ParseJWT(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(TokenUserID, claims.UserID)
		return c.Next()
	}
}
