package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/room_scheduler/internal/model"
	"github.com/Freeeeeet/room_scheduler/internal/repository"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// DefaultRooms стартовый набор комнат, открытых по будням 08:00-22:00
func DefaultRooms() []*model.Room {
	defs := []struct {
		name     string
		building string
		floor    int
		capacity int
	}{
		{"Room A101", "Main", 1, 4},
		{"Room B202", "Library", 2, 6},
		{"Room C303", "Science", 3, 2},
	}

	rooms := make([]*model.Room, 0, len(defs))
	for _, s := range defs {
		hours := make([]model.OpenHours, 0, 5)
		for d := time.Monday; d <= time.Friday; d++ {
			hours = append(hours, model.OpenHours{Weekday: d, Open: 8 * 60, Close: 22 * 60})
		}

		rooms = append(rooms, &model.Room{
			Name:      s.name,
			Building:  s.building,
			Floor:     s.floor,
			Capacity:  s.capacity,
			IsActive:  true,
			OpenHours: hours,
		})
	}
	return rooms
}

// Seed добавляет отсутствующие комнаты из DefaultRooms, возвращает число созданных
func (a *App) Seed(ctx context.Context) (int, error) {
	rooms := DefaultRooms()

	if a.memStore != nil {
		created := 0
		for _, room := range rooms {
			if a.memStore.RoomByName(room.Name) != nil {
				continue
			}
			if err := a.memStore.AddRoom(room); err != nil {
				return created, err
			}
			created++
		}
		a.logSeeded(created)
		return created, nil
	}

	created := 0
	err := pgx.BeginFunc(ctx, a.pool, func(tx pgx.Tx) error {
		repo := repository.NewRoomRepository(tx)
		for _, room := range rooms {
			existing, err := repo.GetByName(ctx, room.Name)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			if err := repo.Create(ctx, room); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed rooms: %w", err)
	}

	a.logSeeded(created)
	return created, nil
}

func (a *App) logSeeded(created int) {
	a.logger.Info("Rooms seeded", zap.Int("created", created))
}
