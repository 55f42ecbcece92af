package notifier

import (
	"context"
	"time"

	"github.com/quizwatch/quizwatch/internal/config"
	"github.com/quizwatch/quizwatch/internal/event"
)

// Notifier defines the interface for delivering a cycle report
type Notifier interface {
	// Name identifies the channel in logs and metrics
	Name() string
	// Notify delivers the messages derived from r
	Notify(ctx context.Context, r *Report) error
}

// Verifier is implemented by channels that can check their credentials
// before the first cycle
type Verifier interface {
	Verify(ctx context.Context) error
}

// Report is what one watch cycle hands to the notification channels.
// Diff holds only the new and changed games that passed the filter.
type Report struct {
	CycleID     string
	CheckedAt   time.Time
	SeriesTitle string
	ScheduleURL string
	Snapshot    *event.Snapshot
	Diff        *event.DiffResult
}

// HasUpdates reports whether the filtered diff has anything to announce
func (r *Report) HasUpdates() bool {
	return r != nil && r.Diff.HasUpdates()
}

// Kind is the type of a single outgoing message
type Kind string

const (
	KindNew     Kind = "new"
	KindChanged Kind = "changed"
	KindDigest  Kind = "digest"
	KindSummary Kind = "summary"
)

// Message is one unit of delivery. Event and Change are set for new and
// changed messages, Overflow for digests.
type Message struct {
	Kind     Kind
	Event    *event.Event
	Change   *event.EventChange
	Overflow []*event.Event
}

// Options controls which messages a report produces
type Options struct {
	// OnlyNew suppresses delivery entirely when nothing is new or changed
	OnlyNew bool
	// SendSummary appends a summary of the whole snapshot
	SendSummary bool
	// MaxMessages caps per-game messages; the rest go into one digest. 0 means no cap.
	MaxMessages int
}

// OptionsFromConfig maps the notify config section to Options
func OptionsFromConfig(cfg config.NotifyConfig) Options {
	return Options{
		OnlyNew:     cfg.OnlyNew,
		SendSummary: cfg.SendSummary,
		MaxMessages: cfg.MaxMessages,
	}
}

// Messages lists what should be delivered for r, in order: changed games,
// new games, an optional digest of games over the cap, then the summary.
//
// With no updates and OnlyNew set nothing is produced. With no updates and
// OnlyNew unset only the summary is produced, so an idle cycle still reports.
func (r *Report) Messages(opts Options) []Message {
	if r == nil {
		return nil
	}

	if !r.HasUpdates() {
		if opts.OnlyNew || r.Snapshot.IsEmpty() {
			return nil
		}
		return []Message{{Kind: KindSummary}}
	}

	changes := make(map[string]*event.EventChange, len(r.Diff.Changes))
	for _, c := range r.Diff.Changes {
		changes[c.EventID] = c
	}

	items := make([]Message, 0, len(r.Diff.ChangedEvents)+len(r.Diff.NewEvents))
	for _, evt := range r.Diff.ChangedEvents {
		items = append(items, Message{Kind: KindChanged, Event: evt, Change: changes[evt.ID]})
	}
	for _, evt := range r.Diff.NewEvents {
		items = append(items, Message{Kind: KindNew, Event: evt})
	}

	var msgs []Message
	if opts.MaxMessages > 0 && len(items) > opts.MaxMessages {
		overflow := make([]*event.Event, 0, len(items)-opts.MaxMessages)
		for _, m := range items[opts.MaxMessages:] {
			overflow = append(overflow, m.Event)
		}
		msgs = append(items[:opts.MaxMessages:opts.MaxMessages], Message{Kind: KindDigest, Overflow: overflow})
	} else {
		msgs = items
	}

	if opts.SendSummary && !r.Snapshot.IsEmpty() {
		msgs = append(msgs, Message{Kind: KindSummary})
	}

	return msgs
}

// summaryEvents returns the snapshot events, or nil
func (r *Report) summaryEvents() []*event.Event {
	if r.Snapshot == nil {
		return nil
	}
	return r.Snapshot.Events
}
