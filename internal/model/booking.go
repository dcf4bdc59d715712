package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"   // Ожидает решения администратора
	BookingStatusConfirmed BookingStatus = "CONFIRMED" // Подтверждено, держит комнату
	BookingStatusRejected  BookingStatus = "REJECTED"  // Отклонено администратором
	BookingStatusCancelled BookingStatus = "CANCELLED" // Отменено
)

// Valid проверяет, что статус известен
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusRejected, BookingStatusCancelled:
		return true
	}
	return false
}

// IsTerminal из терминального статуса переходов нет
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusRejected || s == BookingStatusCancelled
}

type Booking struct {
	ID           uuid.UUID     `json:"id"`
	RoomID       uuid.UUID     `json:"room_id"`
	UserID       string        `json:"user_id"`
	Start        time.Time     `json:"start_ts"`
	End          time.Time     `json:"end_ts"`
	Status       BookingStatus `json:"status"`
	Reason       string        `json:"reason,omitempty"`        // Причина от студента
	AdminNote    string        `json:"admin_note,omitempty"`    // Комментарий администратора
	CancelReason string        `json:"cancel_reason,omitempty"` // Причина отмены
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	DecidedAt    *time.Time    `json:"decided_at,omitempty"`   // Когда одобрено/отклонено
	CancelledAt  *time.Time    `json:"cancelled_at,omitempty"` // Когда отменено
}

// Interval интервал бронирования
func (b *Booking) Interval() Interval {
	return Interval{Start: b.Start, End: b.End}
}

// Clone глубокая копия, чтобы хранилище не отдавало свои указатели
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	if b.DecidedAt != nil {
		t := *b.DecidedAt
		c.DecidedAt = &t
	}
	if b.CancelledAt != nil {
		t := *b.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}

// BookingFilter фильтр административного списка
type BookingFilter struct {
	RoomID   *uuid.UUID
	UserID   string
	Status   BookingStatus
	From     *time.Time // бронирования, заканчивающиеся не раньше From
	To       *time.Time // бронирования, начинающиеся не позже To
	Page     int
	PageSize int
}

// Matches проверяет бронирование на соответствие фильтру (без пагинации)
func (f BookingFilter) Matches(b *Booking) bool {
	if f.RoomID != nil && b.RoomID != *f.RoomID {
		return false
	}
	if f.UserID != "" && b.UserID != f.UserID {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.From != nil && b.End.Before(*f.From) {
		return false
	}
	if f.To != nil && b.Start.After(*f.To) {
		return false
	}
	return true
}

// BookingPage страница административного списка
type BookingPage struct {
	Items      []*Booking `json:"items"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages"`
}
