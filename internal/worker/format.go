package worker

import (
	"fmt"
	"strings"

	"shareit/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const timeLayout = "02.01.2006 15:04"

var eventTitles = map[string]string{
	events.EventBookingCreated:  "🆕 Новая заявка на бронирование",
	events.EventBookingApproved: "✅ Бронирование подтверждено",
	events.EventBookingRejected: "❌ Бронирование отклонено",
}

// FormatBookingEvent renders an HTML message for a booking event.
func FormatBookingEvent(eventType string, p events.BookingEventPayload) string {
	title, ok := eventTitles[eventType]
	if !ok {
		title = eventType
	}

	var sb strings.Builder
	sb.WriteString("<b>" + title + "</b>\n")
	sb.WriteString(fmt.Sprintf("Заявка: #%d\n", p.BookingID))
	sb.WriteString(fmt.Sprintf("Вещь: %s (#%d)\n", tgbotapi.EscapeText(tgbotapi.ModeHTML, p.ItemName), p.ItemID))
	sb.WriteString(fmt.Sprintf("Арендатор: #%d\n", p.BookerID))
	sb.WriteString(fmt.Sprintf("Период: %s - %s UTC", p.Start.UTC().Format(timeLayout), p.End.UTC().Format(timeLayout)))
	return sb.String()
}
