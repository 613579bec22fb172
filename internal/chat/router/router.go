package router

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"pairchat/internal/chat/app"
	"pairchat/pkg/middlewares"
)

// RegisterRoutes mount the REST surface and the websocket upgrade
func RegisterRoutes(r *fiber.App, httpHandler *app.ChatHTTPHandler, wsHandler *app.ChatWebsocketHandler) {
	auth := r.Group("/auth")
	auth.Post("/register", httpHandler.Register)
	auth.Post("/login", httpHandler.Login)
	auth.Get("/me", middlewares.JWTMiddleware(), httpHandler.Me)
	auth.Get("/users", middlewares.JWTMiddleware(), httpHandler.Users)

	messages := r.Group("/messages", middlewares.JWTMiddleware())
	messages.Get("/:peerID", httpHandler.History)
	messages.Post("/:peerID/mark-read", httpHandler.MarkRead)

	r.Get("/ws", middlewares.JWTMiddleware(), websocket.New(func(c *websocket.Conn) {
		wsHandler.HandleConnection(context.Background(), c)
	}))
}
