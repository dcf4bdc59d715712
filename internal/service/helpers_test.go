package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/room_scheduler/internal/lock"
	"github.com/Freeeeeet/room_scheduler/internal/model"
	"github.com/Freeeeeet/room_scheduler/internal/policy"
	"github.com/Freeeeeet/room_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/room_scheduler/internal/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// понедельник
var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

var (
	student = model.Caller{UserID: "student-1", Role: model.RoleStudent}
	other   = model.Caller{UserID: "student-2", Role: model.RoleStudent}
	admin   = model.Caller{UserID: "admin-1", Role: model.RoleAdmin}
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.BookingEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event model.BookingEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) Types() []model.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.EventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store    *memory.Store
	clock    *fixedClock
	notifier *recordingNotifier
	bookings *service.BookingService
	slots    *service.AvailabilityService
	rooms    *service.RoomService
	room     *model.Room
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	room := &model.Room{Name: "A101", Building: "A", Floor: 1, Capacity: 4, IsActive: true}
	require.NoError(t, store.AddRoom(room))

	clock := &fixedClock{now: testNow}
	notifier := &recordingNotifier{}
	logger := zap.NewNop()

	return &fixture{
		store:    store,
		clock:    clock,
		notifier: notifier,
		bookings: service.NewBookingService(store, lock.NewLocal(), notifier, clock, policy.DefaultLimits(), logger),
		slots:    service.NewAvailabilityService(store, time.UTC, false, logger),
		rooms:    service.NewRoomService(store, time.UTC, logger),
		room:     room,
	}
}

// at время на следующий день после testNow
func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 11, hour, minute, 0, 0, time.UTC)
}

func (f *fixture) request(t *testing.T, caller model.Caller, start, end time.Time) *model.Booking {
	t.Helper()
	b, err := f.bookings.RequestBooking(context.Background(), caller, service.RequestBookingInput{
		RoomID: f.room.ID,
		Start:  start,
		End:    end,
		Reason: "study group",
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) confirmed(t *testing.T, start, end time.Time) *model.Booking {
	t.Helper()
	b, err := f.bookings.CreateConfirmedBooking(context.Background(), admin, service.CreateBookingInput{
		RoomID: f.room.ID,
		Start:  start,
		End:    end,
	})
	require.NoError(t, err)
	return b
}
