package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/quizwatch/quizwatch/internal/event"
)

// summaryPreview is how many reserve games the summary lists
const summaryPreview = 3

// FormatEvent formats a newly seen game
func FormatEvent(evt *event.Event) string {
	var msg strings.Builder

	msg.WriteString("🎯 <b>Новая игра!</b>\n\n")
	fmt.Fprintf(&msg, "<b>%s</b>\n", esc(gameName(evt)))
	writeEventBody(&msg, evt)

	return strings.TrimRight(msg.String(), "\n")
}

// FormatChange formats an availability transition of a known game
func FormatChange(evt *event.Event, change *event.EventChange) string {
	var msg strings.Builder

	msg.WriteString("🔄 <b>Изменился статус игры</b>\n\n")
	fmt.Fprintf(&msg, "<b>%s</b>\n", esc(gameName(evt)))
	if change != nil {
		fmt.Fprintf(&msg, "<i>%s → %s</i>\n\n",
			AvailabilityLabel(change.OldValue), AvailabilityLabel(change.NewValue))
	}
	writeEventBody(&msg, evt)

	return strings.TrimRight(msg.String(), "\n")
}

// Summary is the input of FormatSummary
type Summary struct {
	Title       string
	ScheduleURL string
	UpdatedAt   time.Time
	Events      []*event.Event
}

// FormatSummary formats the totals of a whole snapshot
func FormatSummary(s Summary) string {
	var msg strings.Builder

	var active, reserve []*event.Event
	for _, evt := range s.Events {
		switch evt.Availability {
		case event.AvailabilityActive:
			active = append(active, evt)
		case event.AvailabilityReserve:
			reserve = append(reserve, evt)
		}
	}

	fmt.Fprintf(&msg, "📊 <b>Сводка по играм %s</b>\n", esc(strings.ToUpper(s.Title)))
	if !s.UpdatedAt.IsZero() {
		fmt.Fprintf(&msg, "🕐 <b>Обновлено:</b> %s\n", s.UpdatedAt.Format("02.01.2006 15:04"))
	}
	msg.WriteString("\n")
	fmt.Fprintf(&msg, "📋 <b>Всего игр:</b> %d\n", len(s.Events))
	fmt.Fprintf(&msg, "✅ <b>Доступно для записи:</b> %d\n", len(active))
	fmt.Fprintf(&msg, "⚠️ <b>Запись в резерв:</b> %d\n", len(reserve))

	if len(reserve) > 0 {
		msg.WriteString("\n<b>Ближайшие игры:</b>\n")
		for i, evt := range reserve {
			if i == summaryPreview {
				break
			}
			line := fmt.Sprintf("%d. %s %s - %s", i+1, evt.Date, evt.Time, gameName(evt))
			if hasPlace(evt) {
				line += fmt.Sprintf(" (%s)", evt.Place)
			}
			msg.WriteString(esc(line) + "\n")
		}
	}

	if s.ScheduleURL != "" {
		fmt.Fprintf(&msg, "\n<a href=\"%s\">📅 Открыть полное расписание</a>", esc(s.ScheduleURL))
	}

	return strings.TrimRight(msg.String(), "\n")
}
