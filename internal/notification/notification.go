// Package notification delivers alert messages to one external channel.
// Each Send is a single attempt.
package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"straitwatch/internal/config"
)

const (
	ChannelTelegram = "telegram"
	ChannelWebhook  = "webhook"
	ChannelKafka    = "kafka"
	ChannelNone     = "none"
)

var ErrNotConfigured = errors.New("notification channel not configured")

// Message is one alert. Text channels render Text(); structured channels send the fields.
type Message struct {
	AnalysisID      string    `json:"analysis_id"`
	Level           string    `json:"alert_level"`
	Scenario        string    `json:"primary_scenario"`
	Summary         string    `json:"summary,omitempty"`
	Headline        string    `json:"headline,omitempty"`
	KeyDevelopments []string  `json:"key_developments,omitempty"`
	At              time.Time `json:"at"`
}

func (m Message) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] Strait of Hormuz: %s\n", m.Level, m.Scenario)
	if m.Headline != "" {
		b.WriteString(m.Headline)
		b.WriteString("\n")
	}
	if m.Summary != "" {
		b.WriteString(m.Summary)
		b.WriteString("\n")
	}
	for _, d := range m.KeyDevelopments {
		b.WriteString("- ")
		b.WriteString(d)
		b.WriteString("\n")
	}
	if !m.At.IsZero() {
		b.WriteString(m.At.UTC().Format("2006-01-02 15:04 UTC"))
	}
	return strings.TrimSpace(b.String())
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the sender selected by cfg.Channel.
func New(cfg config.NotifyConfig) (Sender, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	switch strings.ToLower(strings.TrimSpace(cfg.Channel)) {
	case ChannelTelegram:
		if cfg.TelegramBotToken == "" || cfg.TelegramChatID == "" {
			return nil, fmt.Errorf("%w: telegram needs bot token and chat id", ErrNotConfigured)
		}
		return &TelegramSender{HTTP: client, BotToken: cfg.TelegramBotToken, ChatID: cfg.TelegramChatID}, nil
	case ChannelWebhook:
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("%w: webhook needs a url", ErrNotConfigured)
		}
		return &WebhookSender{HTTP: client, URL: cfg.WebhookURL}, nil
	case ChannelKafka:
		if len(cfg.KafkaBrokers) == 0 || cfg.KafkaTopic == "" {
			return nil, fmt.Errorf("%w: kafka needs brokers and a topic", ErrNotConfigured)
		}
		return NewKafkaSender(cfg.KafkaBrokers, cfg.KafkaTopic, timeout), nil
	case ChannelNone, "":
		return nil, ErrNotConfigured
	}
	return nil, fmt.Errorf("unknown notification channel %q", cfg.Channel)
}
