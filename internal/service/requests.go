package service

import (
	"time"

	"github.com/Freeeeeet/room_scheduler/internal/model"
	"github.com/google/uuid"
)

// RequestBookingInput заявка студента (попадает в PENDING)
type RequestBookingInput struct {
	RoomID uuid.UUID `validate:"required"`
	Start  time.Time `validate:"required"`
	End    time.Time `validate:"required"`
	Reason string    `validate:"max=500"`
}

// CreateBookingInput прямое создание подтверждённой брони администратором
type CreateBookingInput struct {
	RoomID uuid.UUID `validate:"required"`
	Start  time.Time `validate:"required"`
	End    time.Time `validate:"required"`
	Note   string    `validate:"max=500"`
}

// EditBookingInput новый интервал для существующей брони
type EditBookingInput struct {
	Start time.Time `validate:"required"`
	End   time.Time `validate:"required"`
}

// ListBookingsInput фильтр административного списка
type ListBookingsInput struct {
	RoomID   *uuid.UUID
	UserID   string
	Status   model.BookingStatus `validate:"omitempty,oneof=PENDING CONFIRMED REJECTED CANCELLED"`
	From     *time.Time
	To       *time.Time
	Page     int `validate:"min=0"`
	PageSize int `validate:"min=0,max=100"`
}

const (
	defaultPage     = 1
	defaultPageSize = 20
)

func (in ListBookingsInput) filter() model.BookingFilter {
	page := in.Page
	if page == 0 {
		page = defaultPage
	}
	size := in.PageSize
	if size == 0 {
		size = defaultPageSize
	}
	return model.BookingFilter{
		RoomID:   in.RoomID,
		UserID:   in.UserID,
		Status:   in.Status,
		From:     in.From,
		To:       in.To,
		Page:     page,
		PageSize: size,
	}
}

// AvailabilityQuery запрос слотов на день; нулевые поля заменяются значениями по умолчанию
type AvailabilityQuery struct {
	RoomID          uuid.UUID `validate:"required"`
	Date            string    `validate:"required,datetime=2006-01-02"`
	DurationMinutes int       `validate:"min=1,max=1440"`
	StepMinutes     int       `validate:"min=1,max=1440"`
	OpenStart       string    `validate:"required,datetime=15:04"`
	OpenEnd         string    `validate:"required,datetime=15:04"`
}

const (
	defaultSlotDuration = 60
	defaultSlotStep     = 30
	defaultOpenStart    = "08:00"
	defaultOpenEnd      = "22:00"
)

func (q AvailabilityQuery) withDefaults() AvailabilityQuery {
	if q.DurationMinutes == 0 {
		q.DurationMinutes = defaultSlotDuration
	}
	if q.StepMinutes == 0 {
		q.StepMinutes = defaultSlotStep
	}
	if q.OpenStart == "" {
		q.OpenStart = defaultOpenStart
	}
	if q.OpenEnd == "" {
		q.OpenEnd = defaultOpenEnd
	}
	return q
}

// AddClosureInput закрытие комнаты на даты включительно
type AddClosureInput struct {
	RoomID    uuid.UUID `validate:"required"`
	StartDate string    `validate:"required,datetime=2006-01-02"`
	EndDate   string    `validate:"required,datetime=2006-01-02"`
	Reason    string    `validate:"max=500"`
}

// ClosuresQuery закрытия комнаты, задевающие диапазон дат; пустые границы не ограничивают
type ClosuresQuery struct {
	RoomID uuid.UUID `validate:"required"`
	From   string    `validate:"omitempty,datetime=2006-01-02"`
	To     string    `validate:"omitempty,datetime=2006-01-02"`
}
