package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"

	"github.com/quizwatch/quizwatch/internal/config"
	"github.com/quizwatch/quizwatch/internal/event"
)

const (
	tweetLimit = 280
	tweetPause = 2 * time.Second
)

// ErrMissingTwitterCredentials is returned when any of the four OAuth values is empty
var ErrMissingTwitterCredentials = errors.New("missing required Twitter credentials")

// TwitterNotifier posts games to Twitter
type TwitterNotifier struct {
	client *twitter.Client
	opts   Options
	pause  time.Duration
}

// NewTwitterNotifier creates a Twitter notifier from OAuth 1.0a credentials
func NewTwitterNotifier(cfg config.TwitterConfig, opts Options) (*TwitterNotifier, error) {
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" || cfg.AccessToken == "" || cfg.AccessSecret == "" {
		return nil, ErrMissingTwitterCredentials
	}

	oauthConfig := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessSecret)
	httpClient := oauthConfig.Client(oauth1.NoContext, token)

	return newTwitterNotifier(twitter.NewClient(httpClient), opts), nil
}

func newTwitterNotifier(client *twitter.Client, opts Options) *TwitterNotifier {
	return &TwitterNotifier{client: client, opts: opts, pause: tweetPause}
}

// Name returns the channel name
func (n *TwitterNotifier) Name() string {
	return config.ChannelTwitter
}

// Notify posts one tweet per message, pausing between tweets
func (n *TwitterNotifier) Notify(ctx context.Context, r *Report) error {
	msgs := r.Messages(n.opts)
	for i, m := range msgs {
		tweet := formatTweet(m, r)

		if _, _, err := n.client.Statuses.Update(tweet, nil); err != nil {
			return fmt.Errorf("failed to post %s tweet %d/%d: %w", m.Kind, i+1, len(msgs), err)
		}

		// Rate limiting: wait between tweets
		if i < len(msgs)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.pause):
			}
		}
	}

	return nil
}

// formatTweet formats a message as a tweet of at most 280 characters
func formatTweet(m Message, r *Report) string {
	var b strings.Builder

	switch m.Kind {
	case KindNew, KindChanged:
		evt := m.Event
		if m.Kind == KindNew {
			b.WriteString("🎯 Новая игра!\n\n")
		} else {
			b.WriteString("🔄 Изменился статус игры\n\n")
		}
		fmt.Fprintf(&b, "%s\n", name(evt))
		if when := strings.TrimSpace(evt.Date + " " + evt.Time); when != "" {
			fmt.Fprintf(&b, "📅 %s\n", when)
		}
		if evt.Place != "" && evt.Place != event.PlaceNotSpecified {
			fmt.Fprintf(&b, "📍 %s\n", evt.Place)
		}
		fmt.Fprintf(&b, "%s\n", shortAvailability(evt.Availability))
		if l := link(evt); l != "" {
			fmt.Fprintf(&b, "\n🔗 %s\n", l)
		}
	case KindDigest:
		fmt.Fprintf(&b, "📬 Ещё новых игр: %d\n", len(m.Overflow))
		if r.ScheduleURL != "" {
			fmt.Fprintf(&b, "\n📅 %s\n", r.ScheduleURL)
		}
	case KindSummary:
		writeSummaryText(&b, r)
	}

	b.WriteString("\n#квиз #QuizPlease")

	return truncateRunes(b.String(), tweetLimit)
}

func shortAvailability(a event.Availability) string {
	switch a {
	case event.AvailabilityActive:
		return "✅ Есть места"
	case event.AvailabilityReserve:
		return "⚠️ Резерв"
	default:
		return "❔ Статус неизвестен"
	}
}

// truncateRunes cuts s to limit characters, ending with an ellipsis when cut
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
