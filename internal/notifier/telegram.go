package notifier

import (
	"context"
	"fmt"

	"github.com/quizwatch/quizwatch/internal/config"
	"github.com/quizwatch/quizwatch/internal/logger"
	"github.com/quizwatch/quizwatch/internal/telegram"
)

// TelegramNotifier sends HTML messages to one Telegram chat
type TelegramNotifier struct {
	client *telegram.Client
	opts   Options
}

// NewTelegramNotifier creates a Telegram notifier from config
func NewTelegramNotifier(cfg config.TelegramConfig, opts Options) (*TelegramNotifier, error) {
	var clientOpts []telegram.ClientOption
	if cfg.APIServer != "" {
		clientOpts = append(clientOpts, telegram.WithAPIServer(cfg.APIServer))
	}

	client, err := telegram.NewClient(cfg.BotToken, cfg.ChatID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating telegram client: %w", err)
	}

	return &TelegramNotifier{client: client, opts: opts}, nil
}

// Name returns the channel name
func (n *TelegramNotifier) Name() string {
	return config.ChannelTelegram
}

// Notify sends each message in order and stops at the first failure
func (n *TelegramNotifier) Notify(ctx context.Context, r *Report) error {
	msgs := r.Messages(n.opts)
	for i, m := range msgs {
		if err := n.client.SendMessage(ctx, formatTelegram(m, r)); err != nil {
			return fmt.Errorf("sending %s message %d/%d: %w", m.Kind, i+1, len(msgs), err)
		}
	}
	return nil
}

// Verify checks the bot token with getMe
func (n *TelegramNotifier) Verify(ctx context.Context) error {
	username, err := n.client.Ping(ctx)
	if err != nil {
		return err
	}
	logger.Info("Telegram bot verified", logger.Fields{"bot": username})
	return nil
}

func formatTelegram(m Message, r *Report) string {
	switch m.Kind {
	case KindNew:
		return telegram.FormatEvent(m.Event)
	case KindChanged:
		return telegram.FormatChange(m.Event, m.Change)
	case KindDigest:
		return telegram.FormatDigest(m.Overflow)
	default:
		return telegram.FormatSummary(telegram.Summary{
			Title:       r.SeriesTitle,
			ScheduleURL: r.ScheduleURL,
			UpdatedAt:   r.CheckedAt,
			Events:      r.summaryEvents(),
		})
	}
}
