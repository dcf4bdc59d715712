package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/room_scheduler/internal/model"
	"github.com/Freeeeeet/room_scheduler/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const bookingColumns = `id, room_id, user_id, start_ts, end_ts, status, reason, admin_note, cancel_reason,
		created_at, updated_at, decided_at, cancelled_at`

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(db base.Querier) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(db)}
}

// Create создаёт новое бронирование
func (r *BookingRepository) Create(ctx context.Context, b *model.Booking) error {
	query := `
		INSERT INTO bookings (id, room_id, user_id, start_ts, end_ts, status, reason, admin_note, cancel_reason,
			created_at, updated_at, decided_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.ExecAffected(ctx, query,
		b.ID, b.RoomID, b.UserID, b.Start, b.End, b.Status, b.Reason, b.AdminNote, b.CancelReason,
		b.CreatedAt, b.UpdatedAt, b.DecidedAt, b.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// Update сохраняет интервал, статус и поля решения
func (r *BookingRepository) Update(ctx context.Context, b *model.Booking) error {
	query := `
		UPDATE bookings
		SET start_ts = $2, end_ts = $3, status = $4, admin_note = $5, cancel_reason = $6,
			updated_at = $7, decided_at = $8, cancelled_at = $9
		WHERE id = $1
	`

	affected, err := r.ExecAffected(ctx, query,
		b.ID, b.Start, b.End, b.Status, b.AdminNote, b.CancelReason,
		b.UpdatedAt, b.DecidedAt, b.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("booking not found")
	}

	return nil
}

// GetByID получает бронирование по ID; forUpdate блокирует строку до конца транзакции
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID, forUpdate bool) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	booking, err := scanBooking(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// HasConfirmedOverlap есть ли CONFIRMED бронь комнаты, пересекающая [start, end)
func (r *BookingRepository) HasConfirmedOverlap(ctx context.Context, roomID uuid.UUID, interval model.Interval, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE room_id = $1
			  AND status = 'CONFIRMED'
			  AND start_ts < $3
			  AND $2 < end_ts
			  AND ($4::uuid IS NULL OR id <> $4::uuid)
		)
	`

	var exists bool
	if err := r.QueryRow(ctx, query, roomID, interval.Start, interval.End, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check booking overlap: %w", err)
	}

	return exists, nil
}

// GetByUserID бронирования пользователя по возрастанию начала
func (r *BookingRepository) GetByUserID(ctx context.Context, userID string) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY start_ts, id`

	rows, err := r.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get bookings by user: %w", err)
	}

	return collectBookings(rows)
}

// GetByRoomInWindow брони комнаты с указанными статусами, пересекающие окно
func (r *BookingRepository) GetByRoomInWindow(ctx context.Context, roomID uuid.UUID, window model.Interval, statuses []model.BookingStatus) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE room_id = $1
		  AND start_ts < $3
		  AND $2 < end_ts
		  AND (cardinality($4::text[]) = 0 OR status = ANY($4::text[]))
		ORDER BY start_ts, id
	`

	rows, err := r.Query(ctx, query, roomID, window.Start, window.End, statusStrings(statuses))
	if err != nil {
		return nil, fmt.Errorf("get bookings by room: %w", err)
	}

	return collectBookings(rows)
}

// List страница по фильтру и общее количество подходящих записей
func (r *BookingRepository) List(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, int, error) {
	where, args := buildFilter(filter)

	var total int
	if err := r.QueryRow(ctx, `SELECT COUNT(*) FROM bookings`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings` + where + ` ORDER BY start_ts, id`
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.PageSize, (page-1)*filter.PageSize)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	bookings, err := collectBookings(rows)
	if err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}

// buildFilter WHERE-часть запроса и её аргументы; пустой фильтр даёт пустую строку
func buildFilter(filter model.BookingFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.RoomID != nil {
		add("room_id = $%d", *filter.RoomID)
	}
	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.From != nil {
		add("end_ts >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("start_ts <= $%d", *filter.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func statusStrings(statuses []model.BookingStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID,
		&b.RoomID,
		&b.UserID,
		&b.Start,
		&b.End,
		&b.Status,
		&b.Reason,
		&b.AdminNote,
		&b.CancelReason,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.DecidedAt,
		&b.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]*model.Booking, error) {
	defer rows.Close()

	bookings := make([]*model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, nil
}
