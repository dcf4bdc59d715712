package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/room_scheduler/internal/apperr"
	"github.com/Freeeeeet/room_scheduler/internal/model"
	"github.com/Freeeeeet/room_scheduler/internal/repository/base"
	"github.com/google/uuid"
)

type RoomRepository struct {
	*base.Repository
}

func NewRoomRepository(db base.Querier) *RoomRepository {
	return &RoomRepository{Repository: base.NewRepository(db)}
}

// Create сохраняет комнату вместе с окнами работы и закрытиями
func (r *RoomRepository) Create(ctx context.Context, room *model.Room) error {
	if err := model.ValidateOpenHours(room.OpenHours); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}

	query := `
		INSERT INTO rooms (id, name, building, floor, capacity, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.QueryRow(ctx, query,
		room.ID, room.Name, room.Building, room.Floor, room.Capacity, room.IsActive,
	).Scan(&room.CreatedAt)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}

	if err := r.insertOpenHours(ctx, room.ID, room.OpenHours); err != nil {
		return err
	}

	for i := range room.Closures {
		room.Closures[i].RoomID = room.ID
		if err := r.AddClosure(ctx, &room.Closures[i]); err != nil {
			return err
		}
	}

	return nil
}

// ReplaceOpenHours заменяет окна работы комнаты; вызывать в транзакции
func (r *RoomRepository) ReplaceOpenHours(ctx context.Context, roomID uuid.UUID, hours []model.OpenHours) error {
	if err := model.ValidateOpenHours(hours); err != nil {
		return fmt.Errorf("replace open hours: %w", err)
	}

	if _, err := r.ExecAffected(ctx, `DELETE FROM room_open_hours WHERE room_id = $1`, roomID); err != nil {
		return fmt.Errorf("delete open hours: %w", err)
	}
	return r.insertOpenHours(ctx, roomID, hours)
}

// AddClosure сохраняет закрытие комнаты
func (r *RoomRepository) AddClosure(ctx context.Context, c *model.Closure) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	_, err := r.ExecAffected(ctx, `
		INSERT INTO room_closures (id, room_id, start_date, end_date, reason)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.RoomID, c.StartDate.Format(model.DateLayout), c.EndDate.Format(model.DateLayout), c.Reason)
	if err != nil {
		return fmt.Errorf("create room closure: %w", err)
	}
	return nil
}

func (r *RoomRepository) insertOpenHours(ctx context.Context, roomID uuid.UUID, hours []model.OpenHours) error {
	for _, h := range hours {
		_, err := r.ExecAffected(ctx, `
			INSERT INTO room_open_hours (room_id, weekday, open_minute, close_minute)
			VALUES ($1, $2, $3, $4)
		`, roomID, int(h.Weekday), int(h.Open), int(h.Close))
		if err != nil {
			return fmt.Errorf("create room open hours: %w", err)
		}
	}
	return nil
}

// GetByID получает комнату с расписанием
func (r *RoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	query := `
		SELECT id, name, building, floor, capacity, is_active, created_at
		FROM rooms
		WHERE id = $1
	`

	var room model.Room
	err := r.QueryRow(ctx, query, id).Scan(
		&room.ID,
		&room.Name,
		&room.Building,
		&room.Floor,
		&room.Capacity,
		&room.IsActive,
		&room.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get room by id: %w", err)
	}

	if err := r.loadSchedule(ctx, &room); err != nil {
		return nil, err
	}

	return &room, nil
}

// GetByName получает комнату по уникальному имени
func (r *RoomRepository) GetByName(ctx context.Context, name string) (*model.Room, error) {
	var id uuid.UUID
	err := r.QueryRow(ctx, `SELECT id FROM rooms WHERE name = $1`, name).Scan(&id)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get room by name: %w", err)
	}
	return r.GetByID(ctx, id)
}

// List все комнаты по имени вместе с расписанием
func (r *RoomRepository) List(ctx context.Context) ([]*model.Room, error) {
	query := `
		SELECT id, name, building, floor, capacity, is_active, created_at
		FROM rooms
		ORDER BY name
	`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]*model.Room, 0)
	for rows.Next() {
		var room model.Room
		err := rows.Scan(
			&room.ID,
			&room.Name,
			&room.Building,
			&room.Floor,
			&room.Capacity,
			&room.IsActive,
			&room.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}

	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}

	for _, room := range rooms {
		if err := r.loadSchedule(ctx, room); err != nil {
			return nil, err
		}
	}

	return rooms, nil
}

// SetActive включает или выключает приём новых броней
func (r *RoomRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	affected, err := r.ExecAffected(ctx, `UPDATE rooms SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set room active: %w", err)
	}
	if affected == 0 {
		return apperr.New(apperr.KindRoomNotFound, "room %s not found", id)
	}
	return nil
}

func (r *RoomRepository) loadSchedule(ctx context.Context, room *model.Room) error {
	rows, err := r.Query(ctx, `
		SELECT weekday, open_minute, close_minute
		FROM room_open_hours
		WHERE room_id = $1
		ORDER BY weekday, open_minute
	`, room.ID)
	if err != nil {
		return fmt.Errorf("get room open hours: %w", err)
	}

	room.OpenHours = make([]model.OpenHours, 0)
	for rows.Next() {
		var weekday, open, closeAt int
		if err := rows.Scan(&weekday, &open, &closeAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan open hours: %w", err)
		}
		room.OpenHours = append(room.OpenHours, model.OpenHours{
			Weekday: time.Weekday(weekday),
			Open:    model.TimeOfDay(open),
			Close:   model.TimeOfDay(closeAt),
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate open hours: %w", err)
	}

	rows, err = r.Query(ctx, `
		SELECT id, room_id, start_date, end_date, reason
		FROM room_closures
		WHERE room_id = $1
		ORDER BY start_date
	`, room.ID)
	if err != nil {
		return fmt.Errorf("get room closures: %w", err)
	}
	defer rows.Close()

	room.Closures = make([]model.Closure, 0)
	for rows.Next() {
		var c model.Closure
		if err := rows.Scan(&c.ID, &c.RoomID, &c.StartDate, &c.EndDate, &c.Reason); err != nil {
			return fmt.Errorf("scan closure: %w", err)
		}
		room.Closures = append(room.Closures, c)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate closures: %w", err)
	}

	return nil
}
