package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/quizwatch/quizwatch/internal/event"
)

// AvailabilityLabel returns the human label shown for an availability
func AvailabilityLabel(a event.Availability) string {
	switch a {
	case event.AvailabilityActive:
		return "✅ Есть места"
	case event.AvailabilityReserve:
		return "⚠️ Запись в резерв"
	default:
		return "❔ Статус неизвестен"
	}
}

func esc(s string) string {
	return html.EscapeString(s)
}

// gameName renders "Title #N", or just the title when unnumbered
func gameName(evt *event.Event) string {
	if evt.SequenceNumber == "" {
		return evt.Title
	}
	return evt.Title + " " + evt.SequenceNumber
}

func hasPlace(evt *event.Event) bool {
	return evt.Place != "" && evt.Place != event.PlaceNotSpecified
}

// writeEventBody writes the date, venue, price, status and link lines
func writeEventBody(msg *strings.Builder, evt *event.Event) {
	when := strings.TrimSpace(evt.Date + " " + evt.Time)
	if when != "" {
		fmt.Fprintf(msg, "📅 %s\n", esc(when))
	}

	if hasPlace(evt) {
		fmt.Fprintf(msg, "📍 %s\n", esc(evt.Place))
	}
	if evt.Address != "" && evt.Address != event.PlaceNotSpecified {
		fmt.Fprintf(msg, "🏢 %s\n", esc(evt.Address))
	}

	if evt.Price != "" {
		fmt.Fprintf(msg, "💰 %s\n", esc(evt.Price))
	}

	fmt.Fprintf(msg, "%s\n", AvailabilityLabel(evt.Availability))

	if evt.RegistrationURL != "" && evt.RegistrationURL != event.NoRegistrationURL {
		fmt.Fprintf(msg, "\n🔗 <a href=\"%s\">Записаться</a>\n", esc(evt.RegistrationURL))
	}
}
