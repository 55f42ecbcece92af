package telegram

import (
	"fmt"
	"strings"

	"github.com/quizwatch/quizwatch/internal/event"
)

// FormatDigest lists games that did not fit into individual messages,
// one line each, grouped by date in first-seen order.
func FormatDigest(events []*event.Event) string {
	if len(events) == 0 {
		return ""
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "📬 <b>Ещё %d %s</b>\n", len(events), pluralGames(len(events)))

	var dates []string
	byDate := make(map[string][]*event.Event)
	for _, evt := range events {
		if _, ok := byDate[evt.Date]; !ok {
			dates = append(dates, evt.Date)
		}
		byDate[evt.Date] = append(byDate[evt.Date], evt)
	}

	for _, date := range dates {
		label := date
		if label == "" {
			label = "Дата не указана"
		}
		fmt.Fprintf(&msg, "\n📅 <b>%s</b>\n", esc(label))

		for _, evt := range byDate[date] {
			line := "  • " + gameName(evt)
			if evt.Time != "" {
				line += " " + evt.Time
			}
			if hasPlace(evt) {
				line += " - " + evt.Place
			}
			fmt.Fprintf(&msg, "%s %s\n", esc(line), availabilityMark(evt.Availability))
		}
	}

	return strings.TrimRight(msg.String(), "\n")
}

func availabilityMark(a event.Availability) string {
	switch a {
	case event.AvailabilityActive:
		return "✅"
	case event.AvailabilityReserve:
		return "⚠️"
	default:
		return "❔"
	}
}

// pluralGames picks the Russian plural form of "игра" for n
func pluralGames(n int) string {
	n100 := n % 100
	n10 := n % 10
	switch {
	case n100 >= 11 && n100 <= 14:
		return "игр"
	case n10 == 1:
		return "игра"
	case n10 >= 2 && n10 <= 4:
		return "игры"
	default:
		return "игр"
	}
}
