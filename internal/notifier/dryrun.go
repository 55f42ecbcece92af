package notifier

import (
	"context"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/quizwatch/quizwatch/internal/config"
)

// DryRunNotifier prints what would be sent without contacting any service
type DryRunNotifier struct {
	out  io.Writer
	opts Options
}

// NewDryRunNotifier creates a dry-run notifier writing to out (stdout when nil)
func NewDryRunNotifier(out io.Writer, opts Options) *DryRunNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &DryRunNotifier{out: out, opts: opts}
}

// Name returns the channel name
func (n *DryRunNotifier) Name() string {
	return config.ChannelStdout
}

// Notify prints the messages that would be delivered
func (n *DryRunNotifier) Notify(ctx context.Context, r *Report) error {
	msgs := r.Messages(n.opts)
	for i, m := range msgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		text := formatText(m, r)
		if _, err := fmt.Fprintf(n.out, "--- Message %d/%d (%s) ---\n%s\n\n(Length: %d characters)\n\n",
			i+1, len(msgs), m.Kind, text, utf8.RuneCountInString(text)); err != nil {
			return fmt.Errorf("writing message: %w", err)
		}
	}
	return nil
}
