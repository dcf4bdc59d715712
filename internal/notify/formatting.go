package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/room_scheduler/internal/model"
)

// BookingStatusDisplay отображение статуса бронирования
type BookingStatusDisplay struct {
	Emoji string
	Text  string
}

// GetBookingStatusDisplay возвращает emoji и текст для статуса бронирования
func GetBookingStatusDisplay(status model.BookingStatus) BookingStatusDisplay {
	displays := map[model.BookingStatus]BookingStatusDisplay{
		model.BookingStatusPending:   {"⏳", "Ожидает одобрения"},
		model.BookingStatusConfirmed: {"✅", "Подтверждена"},
		model.BookingStatusCancelled: {"❌", "Отменена"},
		model.BookingStatusRejected:  {"🚫", "Отклонена"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return BookingStatusDisplay{"❓", "Неизвестно"}
}

var eventTitles = map[model.EventType]string{
	model.EventBookingRequested: "📥 Новая заявка на бронирование",
	model.EventBookingCreated:   "🆕 Создана подтверждённая бронь",
	model.EventBookingApproved:  "👍 Заявка одобрена",
	model.EventBookingRejected:  "👎 Заявка отклонена",
	model.EventBookingCancelled: "🗑 Бронь отменена",
	model.EventBookingUpdated:   "✏️ Бронь изменена",
}

// FormatTimeRange форматирует диапазон времени
func FormatTimeRange(start, end time.Time) string {
	return fmt.Sprintf("%s-%s", start.Format("15:04"), end.Format("15:04"))
}

// FormatEvent текст сообщения для администраторов
func FormatEvent(event model.BookingEvent, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	title, ok := eventTitles[event.Type]
	if !ok {
		title = string(event.Type)
	}

	b := event.Booking
	status := GetBookingStatusDisplay(b.Status)
	start := b.Start.In(loc)
	end := b.End.In(loc)

	room := event.RoomName
	if room == "" {
		room = b.RoomID.String()
	}

	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "🏠 Комната: %s\n", room)
	fmt.Fprintf(&sb, "📅 %s, %s\n", start.Format("02.01.2006"), FormatTimeRange(start, end))
	fmt.Fprintf(&sb, "👤 Пользователь: %s\n", b.UserID)
	fmt.Fprintf(&sb, "%s Статус: %s\n", status.Emoji, status.Text)

	if b.Reason != "" {
		fmt.Fprintf(&sb, "💬 Причина: %s\n", b.Reason)
	}
	if b.AdminNote != "" {
		fmt.Fprintf(&sb, "📝 Комментарий: %s\n", b.AdminNote)
	}
	if b.CancelReason != "" {
		fmt.Fprintf(&sb, "📝 Причина отмены: %s\n", b.CancelReason)
	}
	fmt.Fprintf(&sb, "🆔 %s", b.ID)

	return sb.String()
}
