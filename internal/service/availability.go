package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/room_scheduler/internal/apperr"
	"github.com/Freeeeeet/room_scheduler/internal/model"
	"go.uber.org/zap"
)

// AvailabilityService перебирает слоты комнаты на день. Ничего не пишет,
// результат зависит только от снимка хранилища и аргументов.
type AvailabilityService struct {
	store         Store
	location      *time.Location
	pendingBlocks bool
	logger        *zap.Logger
}

// NewAvailabilityService pendingBlocks=true делает PENDING заявки блокирующими;
// по умолчанию они только помечаются в слоте как PendingConflict.
func NewAvailabilityService(store Store, location *time.Location, pendingBlocks bool, logger *zap.Logger) *AvailabilityService {
	if location == nil {
		location = time.UTC
	}
	return &AvailabilityService{
		store:         store,
		location:      location,
		pendingBlocks: pendingBlocks,
		logger:        logger,
	}
}

// ComputeSlots кандидаты от OpenStart до OpenEnd-Duration включительно с шагом Step
func (s *AvailabilityService) ComputeSlots(ctx context.Context, q AvailabilityQuery) ([]model.Slot, error) {
	q = q.withDefaults()
	if err := validateStruct(q); err != nil {
		return nil, err
	}

	day, err := time.ParseInLocation(model.DateLayout, q.Date, s.location)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidArgument, "invalid date %q", q.Date)
	}
	openStart, err := model.ParseTimeOfDay(q.OpenStart)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidArgument, "invalid openStart %q", q.OpenStart)
	}
	openEnd, err := model.ParseTimeOfDay(q.OpenEnd)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidArgument, "invalid openEnd %q", q.OpenEnd)
	}
	if openEnd <= openStart {
		return nil, apperr.New(apperr.KindInvalidArgument, "openEnd must be after openStart")
	}

	room, err := s.store.GetRoom(ctx, q.RoomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, apperr.New(apperr.KindRoomNotFound, "room %s not found", q.RoomID)
	}

	window := model.NewInterval(openStart.On(day), openEnd.On(day))
	bookings, err := s.store.ListRoomBookings(ctx, room.ID, window,
		[]model.BookingStatus{model.BookingStatusConfirmed, model.BookingStatusPending})
	if err != nil {
		return nil, err
	}

	_, closed := room.ClosedOn(day)
	hours := dayWindows(room, day)
	duration := model.TimeOfDay(q.DurationMinutes)
	step := model.TimeOfDay(q.StepMinutes)

	slots := make([]model.Slot, 0)
	for t := openStart; t+duration <= openEnd; t += step {
		start := t.On(day)
		candidate := model.NewInterval(start, start.Add(time.Duration(q.DurationMinutes)*time.Minute))

		slot := model.Slot{
			RoomID:          room.ID,
			Start:           candidate.Start,
			End:             candidate.End,
			Available:       true,
			PendingConflict: overlapsStatus(candidate, bookings, model.BookingStatusPending, nil),
		}

		switch {
		case closed || !room.IsActive:
			slot.Reason = model.SlotReasonClosed
		case hours != nil && !withinAny(candidate, hours):
			slot.Reason = model.SlotReasonOutsideOpenHours
		case OverlapsConfirmed(candidate, bookings, nil):
			slot.Reason = model.SlotReasonBooked
		case s.pendingBlocks && slot.PendingConflict:
			slot.Reason = model.SlotReasonPendingHold
		}
		slot.Available = slot.Reason == model.SlotReasonNone

		slots = append(slots, slot)
	}

	s.logger.Debug("Availability computed",
		zap.String("room_id", room.ID.String()),
		zap.String("date", q.Date),
		zap.Int("slots", len(slots)),
	)

	return slots, nil
}

// dayWindows окна работы комнаты в этот день; nil если расписание не задано вовсе
func dayWindows(room *model.Room, day time.Time) []model.Interval {
	if len(room.OpenHours) == 0 {
		return nil
	}

	windows := make([]model.Interval, 0)
	for _, h := range room.OpenHoursFor(day.Weekday()) {
		windows = append(windows, model.NewInterval(h.Open.On(day), h.Close.On(day)))
	}
	return windows
}

func withinAny(candidate model.Interval, windows []model.Interval) bool {
	for _, w := range windows {
		if w.Contains(candidate) {
			return true
		}
	}
	return false
}
