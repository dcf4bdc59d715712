package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/Freeeeeet/room_scheduler/internal/apperr"
	"github.com/Freeeeeet/room_scheduler/internal/model"
	"github.com/Freeeeeet/room_scheduler/internal/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingService управляет жизненным циклом бронирования:
// PENDING -> CONFIRMED | REJECTED | CANCELLED, CONFIRMED -> CANCELLED.
type BookingService struct {
	store     Store
	locker    Locker
	notifier  Notifier
	conflicts *ConflictDetector
	clock     Clock
	limits    policy.Limits
	logger    *zap.Logger
}

func NewBookingService(
	store Store,
	locker Locker,
	notifier Notifier,
	clock Clock,
	limits policy.Limits,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		store:     store,
		locker:    locker,
		notifier:  notifier,
		conflicts: NewConflictDetector(store),
		clock:     clock,
		limits:    limits,
		logger:    logger,
	}
}

// RequestBooking создаёт заявку в статусе PENDING.
// Конфликты здесь не проверяются, только при одобрении.
func (s *BookingService) RequestBooking(ctx context.Context, caller model.Caller, in RequestBookingInput) (*model.Booking, error) {
	if err := validateStruct(caller); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	interval := model.NewInterval(in.Start, in.End)
	if err := policy.Evaluate(interval, now, s.limits); err != nil {
		return nil, err
	}

	booking := &model.Booking{
		ID:        uuid.New(),
		RoomID:    in.RoomID,
		UserID:    caller.UserID,
		Start:     in.Start,
		End:       in.End,
		Status:    model.BookingStatusPending,
		Reason:    in.Reason,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var room *model.Room
	err := s.withRoom(ctx, in.RoomID, func(tx Tx) error {
		var err error
		room, err = requireActiveRoom(ctx, tx, in.RoomID)
		if err != nil {
			return err
		}
		return tx.InsertBooking(ctx, booking)
	})
	if err != nil {
		s.logRejected("request booking", caller, err)
		return nil, err
	}

	s.logger.Info("Booking requested",
		zap.String("booking_id", booking.ID.String()),
		zap.String("room_id", booking.RoomID.String()),
		zap.String("user_id", caller.UserID),
		zap.Time("start", booking.Start),
		zap.Time("end", booking.End),
	)
	s.emit(ctx, model.EventBookingRequested, booking, room, caller)

	return booking.Clone(), nil
}

// CreateConfirmedBooking создаёт сразу подтверждённую бронь, минуя одобрение
func (s *BookingService) CreateConfirmedBooking(ctx context.Context, caller model.Caller, in CreateBookingInput) (*model.Booking, error) {
	if err := validateStruct(caller); err != nil {
		return nil, err
	}
	if !caller.IsPrivileged() {
		return nil, apperr.New(apperr.KindForbidden, "only administrators can create confirmed bookings")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	interval := model.NewInterval(in.Start, in.End)
	if err := policy.Evaluate(interval, now, s.limits); err != nil {
		return nil, err
	}

	booking := &model.Booking{
		ID:        uuid.New(),
		RoomID:    in.RoomID,
		UserID:    caller.UserID,
		Start:     in.Start,
		End:       in.End,
		Status:    model.BookingStatusConfirmed,
		AdminNote: in.Note,
		CreatedAt: now,
		UpdatedAt: now,
		DecidedAt: &now,
	}

	var room *model.Room
	err := s.withRoom(ctx, in.RoomID, func(tx Tx) error {
		var err error
		room, err = requireActiveRoom(ctx, tx, in.RoomID)
		if err != nil {
			return err
		}

		if err := s.ensureFree(ctx, tx, in.RoomID, interval, nil); err != nil {
			return err
		}

		return tx.InsertBooking(ctx, booking)
	})
	if err != nil {
		s.logRejected("create confirmed booking", caller, err)
		return nil, err
	}

	s.logger.Info("Confirmed booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("room_id", booking.RoomID.String()),
		zap.String("admin_id", caller.UserID),
		zap.Time("start", booking.Start),
		zap.Time("end", booking.End),
	)
	s.emit(ctx, model.EventBookingCreated, booking, room, caller)

	return booking.Clone(), nil
}

// Approve переводит PENDING в CONFIRMED. При конфликте бронь остаётся PENDING.
func (s *BookingService) Approve(ctx context.Context, caller model.Caller, bookingID uuid.UUID, note string) (*model.Booking, error) {
	if err := validateStruct(caller); err != nil {
		return nil, err
	}
	if !caller.IsPrivileged() {
		return nil, apperr.New(apperr.KindForbidden, "only administrators can approve bookings")
	}

	existing, err := s.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var (
		booking *model.Booking
		room    *model.Room
	)
	err = s.withRoom(ctx, existing.RoomID, func(tx Tx) error {
		var err error
		booking, err = lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		if booking.Status != model.BookingStatusPending {
			return invalidTransition(booking.Status, model.BookingStatusConfirmed)
		}

		room, err = requireActiveRoom(ctx, tx, booking.RoomID)
		if err != nil {
			return err
		}

		// интервал мог выйти за горизонт бронирования, пока заявка ждала
		now := s.clock.Now()
		if err := policy.Evaluate(booking.Interval(), now, s.limits); err != nil {
			return err
		}

		if err := s.ensureFree(ctx, tx, booking.RoomID, booking.Interval(), &booking.ID); err != nil {
			return err
		}

		booking.Status = model.BookingStatusConfirmed
		booking.AdminNote = note
		booking.DecidedAt = &now
		booking.UpdatedAt = now

		return tx.UpdateBooking(ctx, booking)
	})
	if err != nil {
		s.logRejected("approve booking", caller, err, zap.String("booking_id", bookingID.String()))
		return nil, err
	}

	s.logger.Info("Booking approved",
		zap.String("booking_id", bookingID.String()),
		zap.String("room_id", booking.RoomID.String()),
		zap.String("admin_id", caller.UserID),
	)
	s.emit(ctx, model.EventBookingApproved, booking, room, caller)

	return booking.Clone(), nil
}

// Reject переводит PENDING в REJECTED без дополнительных проверок
func (s *BookingService) Reject(ctx context.Context, caller model.Caller, bookingID uuid.UUID, note string) (*model.Booking, error) {
	if err := validateStruct(caller); err != nil {
		return nil, err
	}
	if !caller.IsPrivileged() {
		return nil, apperr.New(apperr.KindForbidden, "only administrators can reject bookings")
	}

	existing, err := s.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var (
		booking *model.Booking
		room    *model.Room
	)
	err = s.withRoom(ctx, existing.RoomID, func(tx Tx) error {
		var err error
		booking, err = lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		if booking.Status != model.BookingStatusPending {
			return invalidTransition(booking.Status, model.BookingStatusRejected)
		}

		room, err = tx.GetRoom(ctx, booking.RoomID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		booking.Status = model.BookingStatusRejected
		booking.AdminNote = note
		booking.DecidedAt = &now
		booking.UpdatedAt = now

		return tx.UpdateBooking(ctx, booking)
	})
	if err != nil {
		s.logRejected("reject booking", caller, err, zap.String("booking_id", bookingID.String()))
		return nil, err
	}

	s.logger.Info("Booking rejected",
		zap.String("booking_id", bookingID.String()),
		zap.String("admin_id", caller.UserID),
	)
	s.emit(ctx, model.EventBookingRejected, booking, room, caller)

	return booking.Clone(), nil
}

// Cancel отменяет PENDING или CONFIRMED бронь. Может владелец или администратор.
func (s *BookingService) Cancel(ctx context.Context, caller model.Caller, bookingID uuid.UUID, reason string) error {
	if err := validateStruct(caller); err != nil {
		return err
	}

	existing, err := s.findBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	if !caller.Owns(existing) && !caller.IsPrivileged() {
		return apperr.New(apperr.KindForbidden, "no permission to cancel this booking")
	}

	var (
		booking *model.Booking
		room    *model.Room
	)
	err = s.withRoom(ctx, existing.RoomID, func(tx Tx) error {
		var err error
		booking, err = lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		if booking.Status != model.BookingStatusPending && booking.Status != model.BookingStatusConfirmed {
			return invalidTransition(booking.Status, model.BookingStatusCancelled)
		}

		room, err = tx.GetRoom(ctx, booking.RoomID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		booking.Status = model.BookingStatusCancelled
		booking.CancelReason = reason
		booking.CancelledAt = &now
		booking.UpdatedAt = now

		return tx.UpdateBooking(ctx, booking)
	})
	if err != nil {
		s.logRejected("cancel booking", caller, err, zap.String("booking_id", bookingID.String()))
		return err
	}

	s.logger.Info("Booking cancelled",
		zap.String("booking_id", bookingID.String()),
		zap.String("user_id", caller.UserID),
	)
	s.emit(ctx, model.EventBookingCancelled, booking, room, caller)

	return nil
}

// Edit меняет интервал PENDING или CONFIRMED брони, статус не меняется
func (s *BookingService) Edit(ctx context.Context, caller model.Caller, bookingID uuid.UUID, in EditBookingInput) (*model.Booking, error) {
	if err := validateStruct(caller); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	existing, err := s.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !caller.Owns(existing) && !caller.IsPrivileged() {
		return nil, apperr.New(apperr.KindForbidden, "no permission to edit this booking")
	}

	interval := model.NewInterval(in.Start, in.End)

	var (
		booking *model.Booking
		room    *model.Room
	)
	err = s.withRoom(ctx, existing.RoomID, func(tx Tx) error {
		var err error
		booking, err = lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		if booking.Status != model.BookingStatusPending && booking.Status != model.BookingStatusConfirmed {
			return apperr.New(apperr.KindInvalidTransition, "cannot edit booking in status %s", booking.Status)
		}

		now := s.clock.Now()
		if err := policy.Evaluate(interval, now, s.limits); err != nil {
			return err
		}

		room, err = requireActiveRoom(ctx, tx, booking.RoomID)
		if err != nil {
			return err
		}

		if booking.Status == model.BookingStatusConfirmed {
			if err := s.ensureFree(ctx, tx, booking.RoomID, interval, &booking.ID); err != nil {
				return err
			}
		}

		booking.Start = in.Start
		booking.End = in.End
		booking.UpdatedAt = now

		return tx.UpdateBooking(ctx, booking)
	})
	if err != nil {
		s.logRejected("edit booking", caller, err, zap.String("booking_id", bookingID.String()))
		return nil, err
	}

	s.logger.Info("Booking updated",
		zap.String("booking_id", bookingID.String()),
		zap.String("user_id", caller.UserID),
		zap.Time("start", booking.Start),
		zap.Time("end", booking.End),
	)
	s.emit(ctx, model.EventBookingUpdated, booking, room, caller)

	return booking.Clone(), nil
}

// ListMyBookings бронирования вызывающего по возрастанию начала
func (s *BookingService) ListMyBookings(ctx context.Context, caller model.Caller) ([]*model.Booking, error) {
	if err := validateStruct(caller); err != nil {
		return nil, err
	}

	bookings, err := s.store.ListBookingsByUser(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(bookings, func(i, j int) bool { return bookings[i].Start.Before(bookings[j].Start) })
	return bookings, nil
}

// ListByStatus все брони в статусе (по умолчанию PENDING), только для администратора
func (s *BookingService) ListByStatus(ctx context.Context, caller model.Caller, status model.BookingStatus) ([]*model.Booking, error) {
	if err := validateStruct(caller); err != nil {
		return nil, err
	}
	if !caller.IsPrivileged() {
		return nil, apperr.New(apperr.KindForbidden, "only administrators can list booking requests")
	}

	if status == "" {
		status = model.BookingStatusPending
	}
	if !status.Valid() {
		return nil, apperr.New(apperr.KindInvalidArgument, "unknown status %q", status)
	}

	items, _, err := s.store.ListBookings(ctx, model.BookingFilter{Status: status})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ListBookings административный список с фильтрами и пагинацией
func (s *BookingService) ListBookings(ctx context.Context, caller model.Caller, in ListBookingsInput) (*model.BookingPage, error) {
	if err := validateStruct(caller); err != nil {
		return nil, err
	}
	if !caller.IsPrivileged() {
		return nil, apperr.New(apperr.KindForbidden, "only administrators can list bookings")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	filter := in.filter()
	items, total, err := s.store.ListBookings(ctx, filter)
	if err != nil {
		return nil, err
	}

	totalPages := (total + filter.PageSize - 1) / filter.PageSize
	if totalPages == 0 {
		totalPages = 1
	}

	return &model.BookingPage{
		Items:      items,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// HasConflict проверка пересечения для внешних вызовов (только чтение)
func (s *BookingService) HasConflict(ctx context.Context, roomID uuid.UUID, interval model.Interval, excludeID *uuid.UUID) (bool, error) {
	return s.conflicts.HasConflict(ctx, roomID, interval, excludeID)
}

// withRoom держит блокировку комнаты на всё время проверки и записи
func (s *BookingService) withRoom(ctx context.Context, roomID uuid.UUID, fn func(tx Tx) error) error {
	unlock, err := s.locker.Lock(ctx, roomLockKey(roomID))
	if err != nil {
		return apperr.Storage("acquire room lock", err)
	}
	defer unlock()

	return s.store.InRoomTx(ctx, roomID, fn)
}

func (s *BookingService) ensureFree(ctx context.Context, tx Tx, roomID uuid.UUID, interval model.Interval, excludeID *uuid.UUID) error {
	conflict, err := s.conflicts.HasConflictTx(ctx, tx, roomID, interval, excludeID)
	if err != nil {
		return err
	}
	if conflict {
		return apperr.New(apperr.KindSlotConflict, "time slot overlaps an existing booking")
	}
	return nil
}

func (s *BookingService) findBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperr.New(apperr.KindBookingNotFound, "booking %s not found", id)
	}
	return booking, nil
}

// emit уведомления не влияют на результат операции
func (s *BookingService) emit(ctx context.Context, typ model.EventType, booking *model.Booking, room *model.Room, caller model.Caller) {
	event := model.BookingEvent{
		Type:       typ,
		Booking:    booking.Clone(),
		ActorID:    caller.UserID,
		OccurredAt: s.clock.Now(),
	}
	if room != nil {
		event.RoomName = room.Name
	}

	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Error("Failed to publish booking event",
			zap.String("event", string(typ)),
			zap.String("booking_id", booking.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *BookingService) logRejected(op string, caller model.Caller, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("user_id", caller.UserID),
		zap.String("kind", string(apperr.KindOf(err))),
		zap.Error(err),
	)
	if apperr.IsRetryable(err) || apperr.KindOf(err) == "" {
		s.logger.Error("Failed to "+op, fields...)
		return
	}
	s.logger.Debug("Rejected "+op, fields...)
}

func requireActiveRoom(ctx context.Context, tx Tx, roomID uuid.UUID) (*model.Room, error) {
	room, err := tx.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, apperr.New(apperr.KindRoomNotFound, "room %s not found", roomID)
	}
	if !room.IsActive {
		return nil, apperr.New(apperr.KindRoomInactive, "room %s is inactive", roomID)
	}
	return room, nil
}

func lockBooking(ctx context.Context, tx Tx, id uuid.UUID) (*model.Booking, error) {
	booking, err := tx.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperr.New(apperr.KindBookingNotFound, "booking %s not found", id)
	}
	return booking, nil
}

func invalidTransition(from, to model.BookingStatus) error {
	return apperr.New(apperr.KindInvalidTransition, "cannot move booking from %s to %s", from, to)
}

func roomLockKey(roomID uuid.UUID) string {
	return fmt.Sprintf("room:%s", roomID)
}
