package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/room_scheduler/internal/apperr"
	"github.com/Freeeeeet/room_scheduler/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoomService расписание комнат: окна работы, закрытия и активность.
// Чтение доступно всем, изменения только администратору.
type RoomService struct {
	catalog  RoomCatalog
	location *time.Location
	logger   *zap.Logger
}

func NewRoomService(catalog RoomCatalog, location *time.Location, logger *zap.Logger) *RoomService {
	if location == nil {
		location = time.UTC
	}
	return &RoomService{catalog: catalog, location: location, logger: logger}
}

func (s *RoomService) ListRooms(ctx context.Context) ([]*model.Room, error) {
	return s.catalog.ListRooms(ctx)
}

// OpenHours окна работы комнаты по дням недели; пустой список значит без ограничений
func (s *RoomService) OpenHours(ctx context.Context, roomID uuid.UUID) ([]model.OpenHours, error) {
	room, err := s.room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return room.OpenHours, nil
}

// SetOpenHours заменяет окна работы целиком
func (s *RoomService) SetOpenHours(ctx context.Context, caller model.Caller, roomID uuid.UUID, hours []model.OpenHours) error {
	if err := s.requireAdmin(caller, "change open hours"); err != nil {
		return err
	}
	if err := model.ValidateOpenHours(hours); err != nil {
		return &apperr.Error{Kind: apperr.KindInvalidArgument, Message: err.Error(), Err: err}
	}
	if _, err := s.room(ctx, roomID); err != nil {
		return err
	}

	if err := s.catalog.ReplaceOpenHours(ctx, roomID, hours); err != nil {
		return err
	}

	s.logger.Info("Room open hours updated",
		zap.String("room_id", roomID.String()),
		zap.String("user_id", caller.UserID),
		zap.Int("windows", len(hours)),
	)
	return nil
}

// AddClosure закрывает комнату на диапазон дат; слоты этих дней становятся closed
func (s *RoomService) AddClosure(ctx context.Context, caller model.Caller, in AddClosureInput) (*model.Closure, error) {
	if err := s.requireAdmin(caller, "add closures"); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	start, err := time.ParseInLocation(model.DateLayout, in.StartDate, s.location)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidArgument, "invalid startDate %q", in.StartDate)
	}
	end, err := time.ParseInLocation(model.DateLayout, in.EndDate, s.location)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidArgument, "invalid endDate %q", in.EndDate)
	}
	if end.Before(start) {
		return nil, apperr.New(apperr.KindInvalidArgument, "endDate must not be before startDate")
	}

	if _, err := s.room(ctx, in.RoomID); err != nil {
		return nil, err
	}

	closure := &model.Closure{
		ID:        uuid.New(),
		RoomID:    in.RoomID,
		StartDate: start,
		EndDate:   end,
		Reason:    in.Reason,
	}
	if err := s.catalog.AddClosure(ctx, closure); err != nil {
		return nil, err
	}

	s.logger.Info("Room closure added",
		zap.String("room_id", in.RoomID.String()),
		zap.String("user_id", caller.UserID),
		zap.String("start_date", in.StartDate),
		zap.String("end_date", in.EndDate),
	)
	return closure, nil
}

// Closures закрытия комнаты, у которых end >= From и start <= To
func (s *RoomService) Closures(ctx context.Context, q ClosuresQuery) ([]model.Closure, error) {
	if err := validateStruct(q); err != nil {
		return nil, err
	}

	room, err := s.room(ctx, q.RoomID)
	if err != nil {
		return nil, err
	}

	out := make([]model.Closure, 0, len(room.Closures))
	for _, c := range room.Closures {
		if q.From != "" && c.EndDate.Format(model.DateLayout) < q.From {
			continue
		}
		if q.To != "" && c.StartDate.Format(model.DateLayout) > q.To {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// SetActive неактивная комната не принимает новых броней и показывает все слоты закрытыми
func (s *RoomService) SetActive(ctx context.Context, caller model.Caller, roomID uuid.UUID, active bool) (*model.Room, error) {
	if err := s.requireAdmin(caller, "change room state"); err != nil {
		return nil, err
	}
	if _, err := s.room(ctx, roomID); err != nil {
		return nil, err
	}

	if err := s.catalog.SetRoomActive(ctx, roomID, active); err != nil {
		return nil, err
	}

	s.logger.Info("Room state changed",
		zap.String("room_id", roomID.String()),
		zap.String("user_id", caller.UserID),
		zap.Bool("active", active),
	)
	return s.room(ctx, roomID)
}

func (s *RoomService) requireAdmin(caller model.Caller, action string) error {
	if err := validateStruct(caller); err != nil {
		return err
	}
	if !caller.IsPrivileged() {
		return apperr.New(apperr.KindForbidden, "only administrators can %s", action)
	}
	return nil
}

func (s *RoomService) room(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	room, err := s.catalog.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, apperr.New(apperr.KindRoomNotFound, "room %s not found", id)
	}
	return room, nil
}
