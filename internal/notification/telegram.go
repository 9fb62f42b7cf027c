package notification

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
)

type TelegramSender struct {
	HTTP     *http.Client
	BaseURL  string
	BotToken string
	// ChatID is a numeric chat id or an @channel username.
	ChatID string
}

func (s *TelegramSender) Send(ctx context.Context, msg Message) error {
	if s.BotToken == "" || s.ChatID == "" {
		return fmt.Errorf("missing bot_token/chat_id")
	}
	bot, err := s.bot()
	if err != nil {
		return err
	}
	_, err = bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:             telegramChat(s.ChatID),
		Text:               msg.Text(),
		LinkPreviewOptions: &telego.LinkPreviewOptions{IsDisabled: true},
	})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (s *TelegramSender) bot() (*telego.Bot, error) {
	client := s.HTTP
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	opts := []telego.BotOption{telego.WithHTTPClient(client), telego.WithDiscardLogger()}
	if base := strings.TrimRight(s.BaseURL, "/"); base != "" {
		opts = append(opts, telego.WithAPIServer(base))
	}
	bot, err := telego.NewBot(s.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return bot, nil
}

func telegramChat(id string) telego.ChatID {
	id = strings.TrimSpace(id)
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return telego.ChatID{ID: n}
	}
	return telego.ChatID{Username: id}
}
