package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"club_chat_service/internal/chat/domain"

	"github.com/gofiber/fiber/v2"
)

const defaultRequestTimeout = 10 * time.Second

type httpHistoryRepository struct {
	baseURL string
	token   string
	timeout time.Duration
}

// NewHTTPHistoryRepository history over GET {baseURL}/chats/{id}/messages
func NewHTTPHistoryRepository(baseURL, token string, timeout time.Duration) HistoryRepository {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &httpHistoryRepository{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		timeout: timeout,
	}
}

func (r *httpHistoryRepository) FetchPage(ctx context.Context, channelID string, page int) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	endpoint := fmt.Sprintf("%s/chats/%s/messages?page=%d&order=%s",
		r.baseURL, url.PathEscape(channelID), page, domain.OrderDesc)

	agent := fiber.Get(endpoint)
	agent.Set(fiber.HeaderAuthorization, "Bearer "+r.token)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	agent.Timeout(timeout)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("fetch page %d of %s: %w", page, channelID, errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("fetch page %d of %s: status %d: %s", page, channelID, code, strings.TrimSpace(string(body)))
	}

	var resp domain.MessagePage
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode page %d of %s: %w", page, channelID, err)
	}
	return resp.Data, nil
}
