package service

import (
	"context"

	"github.com/Freeeeeet/room_scheduler/internal/model"
	"github.com/google/uuid"
)

// OverlapQuerier отвечает, есть ли CONFIRMED бронь на комнате, пересекающая интервал.
// excludeID исключает само редактируемое бронирование.
type OverlapQuerier interface {
	HasConfirmedOverlap(ctx context.Context, roomID uuid.UUID, interval model.Interval, excludeID *uuid.UUID) (bool, error)
}

// Tx операции внутри транзакции, сериализованной по комнате.
// GetBooking блокирует строку до конца транзакции.
type Tx interface {
	OverlapQuerier
	GetRoom(ctx context.Context, id uuid.UUID) (*model.Room, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	InsertBooking(ctx context.Context, booking *model.Booking) error
	UpdateBooking(ctx context.Context, booking *model.Booking) error
}

// Store хранилище расписания. Отсутствующая запись возвращается как nil, nil.
type Store interface {
	OverlapQuerier
	GetRoom(ctx context.Context, id uuid.UUID) (*model.Room, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// ListBookingsByUser бронирования пользователя по возрастанию начала
	ListBookingsByUser(ctx context.Context, userID string) ([]*model.Booking, error)
	// ListBookings страница по фильтру и общее количество; PageSize 0 без пагинации
	ListBookings(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, int, error)
	// ListRoomBookings брони комнаты с указанными статусами, пересекающие окно
	ListRoomBookings(ctx context.Context, roomID uuid.UUID, window model.Interval, statuses []model.BookingStatus) ([]*model.Booking, error)
	// InRoomTx выполняет fn атомарно; при ошибке fn ничего не сохраняется
	InRoomTx(ctx context.Context, roomID uuid.UUID, fn func(tx Tx) error) error
}

// Locker взаимное исключение по ключу, удерживается на время проверки и записи
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Notifier получает события после коммита
type Notifier interface {
	Notify(ctx context.Context, event model.BookingEvent) error
}

// RoomCatalog настройка комнат администратором.
// Для отсутствующей комнаты записи возвращают apperr.ErrRoomNotFound.
type RoomCatalog interface {
	GetRoom(ctx context.Context, id uuid.UUID) (*model.Room, error)
	// ListRooms все комнаты с расписанием, по имени
	ListRooms(ctx context.Context) ([]*model.Room, error)
	SetRoomActive(ctx context.Context, id uuid.UUID, active bool) error
	// ReplaceOpenHours заменяет все окна работы комнаты
	ReplaceOpenHours(ctx context.Context, id uuid.UUID, hours []model.OpenHours) error
	AddClosure(ctx context.Context, closure *model.Closure) error
}
