package service_test

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/Freeeeeet/room_scheduler/internal/apperr"
	"github.com/Freeeeeet/room_scheduler/internal/model"
	"github.com/Freeeeeet/room_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/room_scheduler/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func slotAt(t *testing.T, slots []model.Slot, hour, minute int) model.Slot {
	t.Helper()
	start := at(hour, minute)
	for _, s := range slots {
		if s.Start.Equal(start) {
			return s
		}
	}
	t.Fatalf("no slot at %s", start)
	return model.Slot{}
}

func weekdayHours(from, to model.TimeOfDay) []model.OpenHours {
	hours := make([]model.OpenHours, 0, 5)
	for d := time.Monday; d <= time.Friday; d++ {
		hours = append(hours, model.OpenHours{Weekday: d, Open: from, Close: to})
	}
	return hours
}

func TestComputeSlots(t *testing.T) {
	ctx := context.Background()

	t.Run("default day has 27 slots", func(t *testing.T) {
		f := newFixture(t)

		slots, err := f.slots.ComputeSlots(ctx, service.AvailabilityQuery{RoomID: f.room.ID, Date: "2025-03-11"})
		require.NoError(t, err)
		require.Len(t, slots, 27)

		assert.Equal(t, at(8, 0), slots[0].Start)
		assert.Equal(t, at(9, 0), slots[0].End)
		assert.Equal(t, at(21, 0), slots[26].Start)
		assert.Equal(t, at(22, 0), slots[26].End)
		for _, s := range slots {
			assert.True(t, s.Available)
			assert.Equal(t, model.SlotReasonNone, s.Reason)
		}
	})

	t.Run("confirmed booking blocks overlapping slots", func(t *testing.T) {
		f := newFixture(t)
		f.confirmed(t, at(10, 0), at(11, 0))

		slots, err := f.slots.ComputeSlots(ctx, service.AvailabilityQuery{RoomID: f.room.ID, Date: "2025-03-11"})
		require.NoError(t, err)

		assert.True(t, slotAt(t, slots, 9, 0).Available)
		for _, m := range [][2]int{{9, 30}, {10, 0}, {10, 30}} {
			s := slotAt(t, slots, m[0], m[1])
			assert.False(t, s.Available)
			assert.Equal(t, model.SlotReasonBooked, s.Reason)
		}
		assert.True(t, slotAt(t, slots, 11, 0).Available)
	})

	t.Run("pending is flagged but does not block", func(t *testing.T) {
		f := newFixture(t)
		f.request(t, student, at(12, 0), at(13, 0))

		slots, err := f.slots.ComputeSlots(ctx, service.AvailabilityQuery{RoomID: f.room.ID, Date: "2025-03-11"})
		require.NoError(t, err)

		s := slotAt(t, slots, 12, 30)
		assert.True(t, s.Available)
		assert.True(t, s.PendingConflict)
		assert.False(t, slotAt(t, slots, 13, 0).PendingConflict)
	})

	t.Run("pending blocks when configured", func(t *testing.T) {
		f := newFixture(t)
		f.request(t, student, at(12, 0), at(13, 0))
		blocking := service.NewAvailabilityService(f.store, time.UTC, true, zap.NewNop())

		slots, err := blocking.ComputeSlots(ctx, service.AvailabilityQuery{RoomID: f.room.ID, Date: "2025-03-11"})
		require.NoError(t, err)

		s := slotAt(t, slots, 12, 0)
		assert.False(t, s.Available)
		assert.Equal(t, model.SlotReasonPendingHold, s.Reason)
	})

	t.Run("cancelled and rejected are ignored", func(t *testing.T) {
		f := newFixture(t)
		b := f.confirmed(t, at(10, 0), at(11, 0))
		require.NoError(t, f.bookings.Cancel(ctx, admin, b.ID, ""))
		p := f.request(t, student, at(14, 0), at(15, 0))
		_, err := f.bookings.Reject(ctx, admin, p.ID, "")
		require.NoError(t, err)

		slots, err := f.slots.ComputeSlots(ctx, service.AvailabilityQuery{RoomID: f.room.ID, Date: "2025-03-11"})
		require.NoError(t, err)
		for _, s := range slots {
			assert.True(t, s.Available)
			assert.False(t, s.PendingConflict)
		}
	})

	t.Run("open hours of the room", func(t *testing.T) {
		f := newFixture(t)
		room := &model.Room{Name: "B202", Capacity: 6, IsActive: true, OpenHours: weekdayHours(9*60, 18*60)}
		require.NoError(t, f.store.AddRoom(room))

		slots, err := f.slots.ComputeSlots(ctx, service.AvailabilityQuery{RoomID: room.ID, Date: "2025-03-11"})
		require.NoError(t, err)

		assert.Equal(t, model.SlotReasonOutsideOpenHours, slotAt(t, slots, 8, 0).Reason)
		assert.Equal(t, model.SlotReasonOutsideOpenHours, slotAt(t, slots, 8, 30).Reason)
		assert.True(t, slotAt(t, slots, 9, 0).Available)
		assert.True(t, slotAt(t, slots, 17, 0).Available)
		assert.Equal(t, model.SlotReasonOutsideOpenHours, slotAt(t, slots, 17, 30).Reason)

		// воскресенье: окон нет
		sunday, err := f.slots.ComputeSlots(ctx, service.AvailabilityQuery{RoomID: room.ID, Date: "2025-03-16"})
		require.NoError(t, err)
		for _, s := range sunday {
			assert.Equal(t, model.SlotReasonOutsideOpenHours, s.Reason)
		}
	})

	t.Run("closure and inactive room", func(t *testing.T) {
		f := newFixture(t)
		day := at(0, 0)
		room := &model.Room{
			Name:     "C303",
			IsActive: true,
			Closures: []model.Closure{{StartDate: day, EndDate: day, Reason: "renovation"}},
		}
		require.NoError(t, f.store.AddRoom(room))

		slots, err := f.slots.ComputeSlots(ctx, service.AvailabilityQuery{RoomID: room.ID, Date: "2025-03-11"})
		require.NoError(t, err)
		for _, s := range slots {
			assert.Equal(t, model.SlotReasonClosed, s.Reason)
		}

		next, err := f.slots.ComputeSlots(ctx, service.AvailabilityQuery{RoomID: room.ID, Date: "2025-03-12"})
		require.NoError(t, err)
		assert.True(t, next[0].Available)

		require.NoError(t, f.store.SetRoomActive(ctx, f.room.ID, false))
		inactive, err := f.slots.ComputeSlots(ctx, service.AvailabilityQuery{RoomID: f.room.ID, Date: "2025-03-11"})
		require.NoError(t, err)
		assert.Equal(t, model.SlotReasonClosed, inactive[0].Reason)
	})

	t.Run("custom window and step", func(t *testing.T) {
		f := newFixture(t)

		slots, err := f.slots.ComputeSlots(ctx, service.AvailabilityQuery{
			RoomID:          f.room.ID,
			Date:            "2025-03-11",
			DurationMinutes: 90,
			StepMinutes:     60,
			OpenStart:       "09:00",
			OpenEnd:         "12:00",
		})
		require.NoError(t, err)
		require.Len(t, slots, 2)
		assert.Equal(t, at(11, 30), slots[1].End)
	})

	t.Run("duration longer than window", func(t *testing.T) {
		f := newFixture(t)

		slots, err := f.slots.ComputeSlots(ctx, service.AvailabilityQuery{
			RoomID:          f.room.ID,
			Date:            "2025-03-11",
			DurationMinutes: 120,
			OpenStart:       "10:00",
			OpenEnd:         "11:00",
		})
		require.NoError(t, err)
		assert.NotNil(t, slots)
		assert.Empty(t, slots)
	})

	t.Run("repeated calls give the same result", func(t *testing.T) {
		f := newFixture(t)
		f.confirmed(t, at(10, 0), at(11, 0))
		f.request(t, student, at(15, 0), at(16, 0))
		q := service.AvailabilityQuery{RoomID: f.room.ID, Date: "2025-03-11"}

		first, err := f.slots.ComputeSlots(ctx, q)
		require.NoError(t, err)
		second, err := f.slots.ComputeSlots(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("invalid queries", func(t *testing.T) {
		f := newFixture(t)

		tests := []struct {
			name string
			q    service.AvailabilityQuery
			want error
		}{
			{"bad date", service.AvailabilityQuery{RoomID: f.room.ID, Date: "11.03.2025"}, apperr.ErrInvalidArgument},
			{"bad open start", service.AvailabilityQuery{RoomID: f.room.ID, Date: "2025-03-11", OpenStart: "8am"}, apperr.ErrInvalidArgument},
			{"end before start", service.AvailabilityQuery{RoomID: f.room.ID, Date: "2025-03-11", OpenStart: "12:00", OpenEnd: "10:00"}, apperr.ErrInvalidArgument},
			{"negative step", service.AvailabilityQuery{RoomID: f.room.ID, Date: "2025-03-11", StepMinutes: -5}, apperr.ErrInvalidArgument},
			{"unknown room", service.AvailabilityQuery{RoomID: uuid.New(), Date: "2025-03-11"}, apperr.ErrRoomNotFound},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.slots.ComputeSlots(ctx, tt.q)
				assert.ErrorIs(t, err, tt.want)
			})
		}
	})
}

func TestComputeSlotsDaylightSaving(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	store := memory.New()
	room := &model.Room{Name: "A101", IsActive: true}
	require.NoError(t, store.AddRoom(room))
	slots := service.NewAvailabilityService(store, berlin, false, zap.NewNop())

	tests := []struct {
		name  string
		month time.Month
		day   int
	}{
		{"clocks go forward", time.March, 29},
		{"clocks go back", time.October, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := func(hour int) time.Time {
				return time.Date(2026, tt.month, tt.day, hour, 0, 0, 0, berlin)
			}

			got, err := slots.ComputeSlots(context.Background(), service.AvailabilityQuery{
				RoomID: room.ID,
				Date:   local(0).Format(model.DateLayout),
			})
			require.NoError(t, err)
			require.Len(t, got, 27)

			first, last := got[0], got[len(got)-1]
			assert.True(t, local(8).Equal(first.Start), "first slot starts at %s", first.Start)
			assert.True(t, local(21).Equal(last.Start), "last slot starts at %s", last.Start)
			assert.True(t, local(22).Equal(last.End), "last slot ends at %s", last.End)
		})
	}
}
