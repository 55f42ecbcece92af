package notifier

import (
	"fmt"
	"strings"

	"github.com/quizwatch/quizwatch/internal/event"
	"github.com/quizwatch/quizwatch/internal/telegram"
)

// formatText renders a message as plain text for the console
func formatText(m Message, r *Report) string {
	var b strings.Builder

	switch m.Kind {
	case KindNew:
		b.WriteString("🎯 Новая игра!\n")
		writeGameText(&b, m.Event)
	case KindChanged:
		b.WriteString("🔄 Изменился статус игры\n")
		if m.Change != nil {
			fmt.Fprintf(&b, "%s → %s\n",
				telegram.AvailabilityLabel(m.Change.OldValue), telegram.AvailabilityLabel(m.Change.NewValue))
		}
		writeGameText(&b, m.Event)
	case KindDigest:
		fmt.Fprintf(&b, "📬 Ещё игр: %d\n", len(m.Overflow))
		for _, evt := range m.Overflow {
			fmt.Fprintf(&b, "  • %s\n", oneLine(evt))
		}
	case KindSummary:
		writeSummaryText(&b, r)
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeGameText(b *strings.Builder, evt *event.Event) {
	if evt == nil {
		return
	}
	fmt.Fprintf(b, "%s\n", name(evt))
	if when := strings.TrimSpace(evt.Date + " " + evt.Time); when != "" {
		fmt.Fprintf(b, "📅 %s\n", when)
	}
	if v := venue(evt); v != "" {
		fmt.Fprintf(b, "📍 %s\n", v)
	}
	if evt.Price != "" {
		fmt.Fprintf(b, "💰 %s\n", evt.Price)
	}
	fmt.Fprintf(b, "%s\n", telegram.AvailabilityLabel(evt.Availability))
	if l := link(evt); l != "" {
		fmt.Fprintf(b, "🔗 %s\n", l)
	}
}

func writeSummaryText(b *strings.Builder, r *Report) {
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

	fmt.Fprintf(b, "📊 Сводка: %s\n", r.SeriesTitle)
	fmt.Fprintf(b, "Всего игр: %d, доступно: %d, резерв: %d\n", len(events), active, reserve)
	if r.ScheduleURL != "" {
		fmt.Fprintf(b, "📅 %s\n", r.ScheduleURL)
	}
}

// name renders "Title #N", or just the title when unnumbered
func name(evt *event.Event) string {
	if evt.SequenceNumber == "" {
		return evt.Title
	}
	return evt.Title + " " + evt.SequenceNumber
}

// venue joins the known parts of place and address
func venue(evt *event.Event) string {
	var parts []string
	for _, s := range []string{evt.Place, evt.Address} {
		if s != "" && s != event.PlaceNotSpecified {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func link(evt *event.Event) string {
	if evt.RegistrationURL == "" || evt.RegistrationURL == event.NoRegistrationURL {
		return ""
	}
	return evt.RegistrationURL
}

// oneLine is the compact form used in digests
func oneLine(evt *event.Event) string {
	s := name(evt)
	if when := strings.TrimSpace(evt.Date + " " + evt.Time); when != "" {
		s += ", " + when
	}
	if v := venue(evt); v != "" {
		s += ", " + v
	}
	return s
}
