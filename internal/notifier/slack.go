package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/quizwatch/quizwatch/internal/config"
	"github.com/quizwatch/quizwatch/internal/event"
	"github.com/quizwatch/quizwatch/internal/telegram"
)

// ErrMissingWebhook is returned when no Slack webhook URL is configured
var ErrMissingWebhook = errors.New("slack webhook URL is required")

// SlackNotifier posts to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
	channel    string
	httpClient *http.Client
	opts       Options
}

// NewSlackNotifier creates a Slack webhook notifier
func NewSlackNotifier(cfg config.SlackConfig, opts Options) (*SlackNotifier, error) {
	if cfg.WebhookURL == "" {
		return nil, ErrMissingWebhook
	}
	return &SlackNotifier{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		opts:       opts,
	}, nil
}

// Name returns the channel name
func (n *SlackNotifier) Name() string {
	return config.ChannelSlack
}

// Notify posts one webhook message per report message
func (n *SlackNotifier) Notify(ctx context.Context, r *Report) error {
	msgs := r.Messages(n.opts)
	for i, m := range msgs {
		payload := &slack.WebhookMessage{
			Channel: n.channel,
			Text:    formatSlack(m, r),
		}
		if err := slack.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.httpClient, payload); err != nil {
			return fmt.Errorf("posting %s message %d/%d: %w", m.Kind, i+1, len(msgs), err)
		}
	}
	return nil
}

var slackEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// formatSlack renders a message in Slack mrkdwn
func formatSlack(m Message, r *Report) string {
	var b strings.Builder

	switch m.Kind {
	case KindNew, KindChanged:
		evt := m.Event
		if m.Kind == KindNew {
			b.WriteString(":dart: *Новая игра!*\n")
		} else {
			b.WriteString(":arrows_counterclockwise: *Изменился статус игры*\n")
			if m.Change != nil {
				fmt.Fprintf(&b, "_%s → %s_\n",
					telegram.AvailabilityLabel(m.Change.OldValue), telegram.AvailabilityLabel(m.Change.NewValue))
			}
		}
		fmt.Fprintf(&b, "*%s*\n", slackEscaper.Replace(name(evt)))
		if when := strings.TrimSpace(evt.Date + " " + evt.Time); when != "" {
			fmt.Fprintf(&b, ":date: %s\n", slackEscaper.Replace(when))
		}
		if v := venue(evt); v != "" {
			fmt.Fprintf(&b, ":round_pushpin: %s\n", slackEscaper.Replace(v))
		}
		if evt.Price != "" {
			fmt.Fprintf(&b, ":moneybag: %s\n", slackEscaper.Replace(evt.Price))
		}
		fmt.Fprintf(&b, "%s\n", telegram.AvailabilityLabel(evt.Availability))
		if l := link(evt); l != "" {
			fmt.Fprintf(&b, "<%s|Записаться>\n", l)
		}
	case KindDigest:
		fmt.Fprintf(&b, ":mailbox: *Ещё игр: %d*\n", len(m.Overflow))
		for _, evt := range m.Overflow {
			fmt.Fprintf(&b, "• %s\n", slackEscaper.Replace(oneLine(evt)))
		}
	case KindSummary:
		events := r.summaryEvents()
		active, reserve := 0, 0
		for _, evt := range events {
			switch evt.Availability {
			case event.AvailabilityActive:
				active++
			case event.AvailabilityReserve:
				reserve++
			}
		}
		fmt.Fprintf(&b, ":bar_chart: *Сводка: %s*\n", slackEscaper.Replace(r.SeriesTitle))
		fmt.Fprintf(&b, "Всего игр: %d, доступно: %d, резерв: %d\n", len(events), active, reserve)
		if r.ScheduleURL != "" {
			fmt.Fprintf(&b, "<%s|Открыть полное расписание>\n", r.ScheduleURL)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
