// Package repository хранилище расписания в PostgreSQL.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/room_scheduler/internal/apperr"
	"github.com/Freeeeeet/room_scheduler/internal/model"
	"github.com/Freeeeeet/room_scheduler/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store реализует service.Store поверх пула. Запись идёт через InRoomTx:
// транзакция берёт advisory-лок комнаты, а EXCLUDE-ограничение в схеме
// не пропускает пересечение подтверждённых броней даже в обход движка.
type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	logger  *zap.Logger
}

var (
	_ service.Store       = (*Store)(nil)
	_ service.RoomCatalog = (*Store)(nil)
)

func NewStore(pool *pgxpool.Pool, timeout time.Duration, logger *zap.Logger) *Store {
	return &Store{pool: pool, timeout: timeout, logger: logger}
}

// Rooms репозиторий комнат на пуле, для заполнения справочников
func (s *Store) Rooms() *RoomRepository {
	return NewRoomRepository(s.pool)
}

func (s *Store) GetRoom(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	room, err := NewRoomRepository(s.pool).GetByID(ctx, id)
	return room, mapError("get room", err)
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	booking, err := NewBookingRepository(s.pool).GetByID(ctx, id, false)
	return booking, mapError("get booking", err)
}

func (s *Store) ListBookingsByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	bookings, err := NewBookingRepository(s.pool).GetByUserID(ctx, userID)
	return bookings, mapError("list user bookings", err)
}

func (s *Store) ListBookings(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	bookings, total, err := NewBookingRepository(s.pool).List(ctx, filter)
	return bookings, total, mapError("list bookings", err)
}

func (s *Store) ListRoomBookings(ctx context.Context, roomID uuid.UUID, window model.Interval, statuses []model.BookingStatus) ([]*model.Booking, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	bookings, err := NewBookingRepository(s.pool).GetByRoomInWindow(ctx, roomID, window, statuses)
	return bookings, mapError("list room bookings", err)
}

func (s *Store) HasConfirmedOverlap(ctx context.Context, roomID uuid.UUID, interval model.Interval, excludeID *uuid.UUID) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	exists, err := NewBookingRepository(s.pool).HasConfirmedOverlap(ctx, roomID, interval, excludeID)
	return exists, mapError("check overlap", err)
}

func (s *Store) ListRooms(ctx context.Context) ([]*model.Room, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rooms, err := NewRoomRepository(s.pool).List(ctx)
	return rooms, mapError("list rooms", err)
}

func (s *Store) SetRoomActive(ctx context.Context, id uuid.UUID, active bool) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return mapError("set room active", NewRoomRepository(s.pool).SetActive(ctx, id, active))
}

// ReplaceOpenHours удаляет и вставляет окна в одной транзакции под локом комнаты
func (s *Store) ReplaceOpenHours(ctx context.Context, id uuid.UUID, hours []model.OpenHours) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, roomKey(id)); err != nil {
			return fmt.Errorf("lock room: %w", err)
		}

		rooms := NewRoomRepository(tx)
		room, err := rooms.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if room == nil {
			return apperr.New(apperr.KindRoomNotFound, "room %s not found", id)
		}
		return rooms.ReplaceOpenHours(ctx, id, hours)
	})
	return mapError("replace open hours", err)
}

func (s *Store) AddClosure(ctx context.Context, closure *model.Closure) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return mapError("add closure", NewRoomRepository(s.pool).AddClosure(ctx, closure))
}

// InRoomTx выполняет fn в транзакции, сериализованной по комнате
func (s *Store) InRoomTx(ctx context.Context, roomID uuid.UUID, fn func(tx service.Tx) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, roomKey(roomID)); err != nil {
			return fmt.Errorf("lock room: %w", err)
		}

		return fn(&pgTx{
			rooms:    NewRoomRepository(tx),
			bookings: NewBookingRepository(tx),
		})
	})
	if err != nil {
		s.logger.Debug("Room transaction rolled back",
			zap.String("room_id", roomID.String()),
			zap.Error(err))
	}

	return mapError("room transaction", err)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func roomKey(roomID uuid.UUID) string {
	return "room:" + roomID.String()
}

type pgTx struct {
	rooms    *RoomRepository
	bookings *BookingRepository
}

func (t *pgTx) GetRoom(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	return t.rooms.GetByID(ctx, id)
}

func (t *pgTx) GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return t.bookings.GetByID(ctx, id, true)
}

func (t *pgTx) HasConfirmedOverlap(ctx context.Context, roomID uuid.UUID, interval model.Interval, excludeID *uuid.UUID) (bool, error) {
	return t.bookings.HasConfirmedOverlap(ctx, roomID, interval, excludeID)
}

func (t *pgTx) InsertBooking(ctx context.Context, booking *model.Booking) error {
	return t.bookings.Create(ctx, booking)
}

func (t *pgTx) UpdateBooking(ctx context.Context, booking *model.Booking) error {
	return t.bookings.Update(ctx, booking)
}
