package router

import (
	"context"
	"fmt"
	"strconv"

	"club_chat_service/internal/chat/app"
	"club_chat_service/pkg/logger"
	"club_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes chat service routes
// @title Club Chat Service API
// @version 1.0
// @description Team chat history and live delivery
// @BasePath /
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler, history *app.HistoryHandler) {
	r.Get("/", ConnectCheck)
	r.Get("/swagger/*", swagger.HandlerDefault)

	r.Use(middlewares.JWTMiddleware())
	r.Post("/debug", DebugLogFlag)

	r.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	r.Get("/chats/:channelId/messages", history.GetMessages)
}

// ConnectCheck check service start
// @Summary Check chat service status
// @Tags Shared
// @Success 200 {string} string "chat service start!"
// @Router / [get]
func ConnectCheck(c *fiber.Ctx) error {
	return c.SendString("chat service start!")
}

// DebugLogFlag toggle debug log flag
// @Summary Toggle Debug Log Flag
// @Tags Shared
// @Param status query bool true "Debug status"
// @Success 200 {string} string "debug mode updated"
// @Failure 400 {string} string "Invalid status value"
// @Router /debug [post]
func DebugLogFlag(c *fiber.Ctx) error {
	status, err := strconv.ParseBool(c.Query("status"))
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	logger.Log.SetDebugMode(status)
	return c.SendString(fmt.Sprintf("debug mode is : %t", status))
}
