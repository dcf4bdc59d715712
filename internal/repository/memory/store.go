// Package memory хранилище расписания в памяти процесса.
// Транзакции сериализуются, записи буферизуются и применяются только при успехе.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Freeeeeet/room_scheduler/internal/apperr"
	"github.com/Freeeeeet/room_scheduler/internal/model"
	"github.com/Freeeeeet/room_scheduler/internal/service"
	"github.com/google/uuid"
)

type Store struct {
	mu       sync.RWMutex
	txMu     sync.Mutex
	rooms    map[uuid.UUID]*model.Room
	bookings map[uuid.UUID]*model.Booking
}

var _ service.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		rooms:    make(map[uuid.UUID]*model.Room),
		bookings: make(map[uuid.UUID]*model.Booking),
	}
}

// AddRoom добавляет или заменяет комнату; нулевой ID генерируется
func (s *Store) AddRoom(room *model.Room) error {
	if err := model.ValidateOpenHours(room.OpenHours); err != nil {
		return fmt.Errorf("add room: %w", err)
	}
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = cloneRoom(room)
	return nil
}

var _ service.RoomCatalog = (*Store)(nil)

// SetRoomActive включает или выключает приём новых броней
func (s *Store) SetRoomActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.updateRoom(ctx, id, func(room *model.Room) error {
		room.IsActive = active
		return nil
	})
}

func (s *Store) ReplaceOpenHours(ctx context.Context, id uuid.UUID, hours []model.OpenHours) error {
	if err := model.ValidateOpenHours(hours); err != nil {
		return fmt.Errorf("replace open hours: %w", err)
	}
	return s.updateRoom(ctx, id, func(room *model.Room) error {
		room.OpenHours = append([]model.OpenHours(nil), hours...)
		return nil
	})
}

func (s *Store) AddClosure(ctx context.Context, closure *model.Closure) error {
	if closure.EndDate.Before(closure.StartDate) {
		return apperr.New(apperr.KindInvalidArgument, "closure ends before it starts")
	}
	if closure.ID == uuid.Nil {
		closure.ID = uuid.New()
	}
	return s.updateRoom(ctx, closure.RoomID, func(room *model.Room) error {
		room.Closures = append(room.Closures, *closure)
		sort.SliceStable(room.Closures, func(i, j int) bool {
			return room.Closures[i].StartDate.Before(room.Closures[j].StartDate)
		})
		return nil
	})
}

func (s *Store) ListRooms(ctx context.Context) ([]*model.Room, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]*model.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, cloneRoom(room))
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms, nil
}

func (s *Store) updateRoom(ctx context.Context, id uuid.UUID, change func(room *model.Room) error) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[id]
	if !ok {
		return apperr.New(apperr.KindRoomNotFound, "room %s not found", id)
	}
	return change(room)
}

// RoomByName комната с таким именем или nil
func (s *Store) RoomByName(name string) *model.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, room := range s.rooms {
		if room.Name == name {
			return cloneRoom(room)
		}
	}
	return nil
}

func (s *Store) GetRoom(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil, nil
	}
	return cloneRoom(room), nil
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bookings[id].Clone(), nil
}

func (s *Store) ListBookingsByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	return s.collect(ctx, func(b *model.Booking) bool { return b.UserID == userID })
}

func (s *Store) ListBookings(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, int, error) {
	all, err := s.collect(ctx, filter.Matches)
	if err != nil {
		return nil, 0, err
	}

	total := len(all)
	if filter.PageSize <= 0 {
		return all, total, nil
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	from := (page - 1) * filter.PageSize
	if from >= total {
		return []*model.Booking{}, total, nil
	}
	to := from + filter.PageSize
	if to > total {
		to = total
	}
	return all[from:to], total, nil
}

func (s *Store) ListRoomBookings(ctx context.Context, roomID uuid.UUID, window model.Interval, statuses []model.BookingStatus) ([]*model.Booking, error) {
	return s.collect(ctx, func(b *model.Booking) bool {
		return b.RoomID == roomID && hasStatus(b.Status, statuses) && b.Interval().Overlaps(window)
	})
}

func (s *Store) HasConfirmedOverlap(ctx context.Context, roomID uuid.UUID, interval model.Interval, excludeID *uuid.UUID) (bool, error) {
	if err := checkCtx(ctx); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return confirmedOverlap(s.bookings, nil, roomID, interval, excludeID), nil
}

// InRoomTx сериализует все транзакции хранилища
func (s *Store) InRoomTx(ctx context.Context, roomID uuid.UUID, fn func(tx service.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := checkCtx(ctx); err != nil {
		return err
	}

	tx := &memTx{store: s, staged: make(map[uuid.UUID]*model.Booking)}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range tx.staged {
		s.bookings[id] = b
	}
	return nil
}

func (s *Store) collect(ctx context.Context, keep func(b *model.Booking) bool) ([]*model.Booking, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Booking, 0)
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	sortByStart(out)
	return out, nil
}

type memTx struct {
	store  *Store
	staged map[uuid.UUID]*model.Booking
}

func (t *memTx) GetRoom(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	return t.store.GetRoom(ctx, id)
}

func (t *memTx) GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	if b, ok := t.staged[id]; ok {
		return b.Clone(), nil
	}
	return t.store.GetBooking(ctx, id)
}

func (t *memTx) HasConfirmedOverlap(ctx context.Context, roomID uuid.UUID, interval model.Interval, excludeID *uuid.UUID) (bool, error) {
	if err := checkCtx(ctx); err != nil {
		return false, err
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	return confirmedOverlap(t.store.bookings, t.staged, roomID, interval, excludeID), nil
}

func (t *memTx) InsertBooking(ctx context.Context, booking *model.Booking) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	if _, exists := t.staged[booking.ID]; exists {
		return fmt.Errorf("insert booking: duplicate id %s", booking.ID)
	}

	t.store.mu.RLock()
	_, exists := t.store.bookings[booking.ID]
	t.store.mu.RUnlock()
	if exists {
		return fmt.Errorf("insert booking: duplicate id %s", booking.ID)
	}

	t.staged[booking.ID] = booking.Clone()
	return nil
}

func (t *memTx) UpdateBooking(ctx context.Context, booking *model.Booking) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	existing, err := t.GetBooking(ctx, booking.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("booking not found")
	}

	t.staged[booking.ID] = booking.Clone()
	return nil
}

// confirmedOverlap staged-версии перекрывают сохранённые
func confirmedOverlap(committed, staged map[uuid.UUID]*model.Booking, roomID uuid.UUID, interval model.Interval, excludeID *uuid.UUID) bool {
	check := func(b *model.Booking) bool {
		if b.RoomID != roomID || b.Status != model.BookingStatusConfirmed {
			return false
		}
		if excludeID != nil && b.ID == *excludeID {
			return false
		}
		return b.Interval().Overlaps(interval)
	}

	for id, b := range committed {
		if _, shadowed := staged[id]; shadowed {
			continue
		}
		if check(b) {
			return true
		}
	}
	for _, b := range staged {
		if check(b) {
			return true
		}
	}
	return false
}

func hasStatus(status model.BookingStatus, statuses []model.BookingStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, st := range statuses {
		if st == status {
			return true
		}
	}
	return false
}

func sortByStart(bookings []*model.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].Start.Equal(bookings[j].Start) {
			return bookings[i].ID.String() < bookings[j].ID.String()
		}
		return bookings[i].Start.Before(bookings[j].Start)
	})
}

func cloneRoom(room *model.Room) *model.Room {
	c := *room
	c.OpenHours = append([]model.OpenHours(nil), room.OpenHours...)
	c.Closures = append([]model.Closure(nil), room.Closures...)
	return &c
}

// checkCtx истёкший контекст на границе хранилища считается временным сбоем
func checkCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return apperr.Storage("memory store", err)
	}
	return nil
}
