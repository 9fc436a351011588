package app

import (
	"errors"
	"strconv"
	"strings"

	"club_chat_service/internal/chat/domain"
	"club_chat_service/pkg/logger"
	"club_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// HistoryHandler REST access to stored messages
type HistoryHandler struct {
	historyUC *HistoryUseCase
}

// NewHistoryHandler create HistoryHandler
func NewHistoryHandler(historyUC *HistoryUseCase) *HistoryHandler {
	return &HistoryHandler{historyUC: historyUC}
}

// GetMessages one page of a channel's messages
// @Summary Channel message history
// @Description Fixed size pages, newest first unless order=ASC
// @Tags Chat
// @Param channelId path string true "Channel ID"
// @Param page query int false "1-based page" default(1)
// @Param order query string false "ASC or DESC" default(DESC)
// @Success 200 {object} domain.MessagePage
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /chats/{channelId}/messages [get]
func (h *HistoryHandler) GetMessages(c *fiber.Ctx) error {
	memberID, _ := c.Locals(middlewares.TokenMemberID).(string)
	channelID := c.Params("channelId")

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid page"})
	}
	order := domain.SortOrder(strings.ToUpper(c.Query("order", string(domain.OrderDesc))))

	msgs, err := h.historyUC.GetPage(c.UserContext(), channelID, memberID, page, order)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidOrder):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrChannelNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrNotChannelMember):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	default:
		logger.Log.Error("history page failed",
			zap.String("channel_id", channelID),
			zap.Int("page", page),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	if msgs == nil {
		msgs = []domain.Message{}
	}
	return c.JSON(domain.MessagePage{Data: msgs})
}
