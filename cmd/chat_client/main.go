package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"club_chat_service/internal/chat/domain"
	"club_chat_service/internal/chatclient/app"
	"club_chat_service/internal/chatclient/repository"
	"club_chat_service/pkg/config"
	"club_chat_service/pkg/logger"

	"go.uber.org/zap"
)

const usage = "type a message and press enter; /more loads older messages, /open <channel> switches, /quit exits"

func main() {
	logger.Log = logger.InitializeTo(config.EnvConfig.ChatClient, config.EnvConfig.ChatClientLogPath, os.Stderr)
	defer logger.Log.Sync()

	cfg, err := config.LoadConfig[config.ChatClient](config.EnvConfig.ChatClient, config.EnvConfig.ChatClientYAMLPath)
	if err != nil {
		logger.Log.Fatal("load config failed", zap.Error(err))
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Log.Fatal("unknown display timezone", zap.String("display_timezone", cfg.DisplayTimezone), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. transports
	history := repository.NewHTTPHistoryRepository(cfg.BaseURL, cfg.AuthToken, cfg.RequestTimeout)
	live, err := repository.DialWebsocketLiveRepository(ctx, cfg.WebsocketURL, cfg.AuthToken)
	if err != nil {
		logger.Log.Fatal("connect chat service failed", zap.String("websocket_url", cfg.WebsocketURL), zap.Error(err))
	}
	defer live.Close()

	// 2. session
	session := app.NewSession(history, live, app.SessionConfig{
		UserID:   cfg.UserID,
		PageSize: cfg.PageSize,
		Location: loc,
	})
	defer session.Close()

	if err := session.Open(ctx, cfg.ChannelID); err != nil {
		logger.Log.Fatal("open channel failed", zap.String("chat_id", cfg.ChannelID), zap.Error(err))
	}

	// 3. render on every change
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-session.Changes():
				render(os.Stdout, session, cfg.UserID)
			}
		}
	}()

	fmt.Println(usage)
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !handleLine(ctx, session, line) {
				return
			}
		}
	}
}

// handleLine run one input line, false means quit
func handleLine(ctx context.Context, session *app.Session, line string) bool {
	switch {
	case line == "/quit":
		return false
	case line == "/more":
		if session.EndOfHistory() {
			fmt.Println("-- beginning of conversation --")
			return true
		}
		_ = session.OnScrollToTop(ctx)
	case strings.HasPrefix(line, "/open "):
		channelID := strings.TrimSpace(strings.TrimPrefix(line, "/open "))
		if err := session.Open(ctx, channelID); err != nil {
			fmt.Printf("cannot open %s: %v\n", channelID, err)
		}
	default:
		_, _ = session.OnSubmit(ctx, line)
	}
	return true
}

func render(w io.Writer, session *app.Session, userID string) {
	fmt.Fprintf(w, "\n===== %s =====\n", session.ChannelID())
	for _, section := range session.Sections() {
		fmt.Fprintf(w, "--- %s ---\n", section.DateKey)
		for _, m := range section.Messages {
			name := m.Author.Name
			if name == "" {
				name = m.Author.ID
			}
			if m.Author.ID == userID {
				name = "me"
			}
			fmt.Fprintf(w, "[%s] %s: %s%s\n", m.CreatedAt.Format("15:04"), name, m.Text, statusSuffix(m.Status))
		}
	}
}

func statusSuffix(status domain.MessageStatus) string {
	switch status {
	case domain.StatusPending:
		return " (sending)"
	case domain.StatusFailed:
		return " (failed)"
	default:
		return ""
	}
}
