package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/quizwatch/quizwatch/internal/config"
	"github.com/quizwatch/quizwatch/internal/logger"
	"github.com/quizwatch/quizwatch/internal/metrics"
)

// Multi fans a report out to several channels. A failing channel does not
// stop the others; all failures are returned joined.
type Multi struct {
	notifiers []Notifier
	metrics   *metrics.Metrics
}

// NewMulti creates a fan-out notifier. m may be nil.
func NewMulti(m *metrics.Metrics, notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers, metrics: m}
}

// Name lists the wrapped channels
func (n *Multi) Name() string {
	names := make([]string, 0, len(n.notifiers))
	for _, child := range n.notifiers {
		names = append(names, child.Name())
	}
	return strings.Join(names, ",")
}

// Len returns the number of wrapped channels
func (n *Multi) Len() int {
	return len(n.notifiers)
}

// Notify delivers r to every channel
func (n *Multi) Notify(ctx context.Context, r *Report) error {
	var errs []error
	for _, child := range n.notifiers {
		if err := child.Notify(ctx, r); err != nil {
			logger.Error("Notification failed", logger.Fields{
				"channel":  child.Name(),
				"cycle_id": r.CycleID,
			}, err)
			if n.metrics != nil {
				n.metrics.NotifyFailed(child.Name())
			}
			errs = append(errs, fmt.Errorf("%s: %w", child.Name(), err))
			continue
		}
		logger.Debug("Notification delivered", logger.Fields{
			"channel":  child.Name(),
			"cycle_id": r.CycleID,
		})
	}
	return errors.Join(errs...)
}

// Verify checks every channel that implements Verifier
func (n *Multi) Verify(ctx context.Context) error {
	var errs []error
	for _, child := range n.notifiers {
		v, ok := child.(Verifier)
		if !ok {
			continue
		}
		if err := v.Verify(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", child.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds a Multi with one notifier per configured channel.
// The stdout channel writes to out.
func FromConfig(cfg config.NotifyConfig, out io.Writer, m *metrics.Metrics) (*Multi, error) {
	opts := OptionsFromConfig(cfg)
	var notifiers []Notifier

	for _, ch := range cfg.Channels {
		switch strings.ToLower(strings.TrimSpace(ch)) {
		case config.ChannelStdout:
			notifiers = append(notifiers, NewDryRunNotifier(out, opts))
		case config.ChannelTelegram:
			n, err := NewTelegramNotifier(cfg.Telegram, opts)
			if err != nil {
				return nil, err
			}
			notifiers = append(notifiers, n)
		case config.ChannelSlack:
			n, err := NewSlackNotifier(cfg.Slack, opts)
			if err != nil {
				return nil, err
			}
			notifiers = append(notifiers, n)
		case config.ChannelTwitter:
			n, err := NewTwitterNotifier(cfg.Twitter, opts)
			if err != nil {
				return nil, err
			}
			notifiers = append(notifiers, n)
		default:
			return nil, fmt.Errorf("unknown notification channel %q", ch)
		}
	}

	return NewMulti(m, notifiers...), nil
}
