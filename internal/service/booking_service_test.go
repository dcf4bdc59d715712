package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/room_scheduler/internal/apperr"
	"github.com/Freeeeeet/room_scheduler/internal/model"
	"github.com/Freeeeeet/room_scheduler/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending booking", func(t *testing.T) {
		f := newFixture(t)

		b := f.request(t, student, at(10, 0), at(11, 0))

		assert.Equal(t, model.BookingStatusPending, b.Status)
		assert.Equal(t, student.UserID, b.UserID)
		assert.Equal(t, "study group", b.Reason)
		assert.Equal(t, testNow, b.CreatedAt)
		assert.Nil(t, b.DecidedAt)

		stored, err := f.store.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatusPending, stored.Status)
		assert.Equal(t, []model.EventType{model.EventBookingRequested}, f.notifier.Types())
	})

	t.Run("pending requests may overlap", func(t *testing.T) {
		f := newFixture(t)

		f.request(t, student, at(10, 0), at(11, 0))
		f.request(t, other, at(10, 30), at(11, 30))
	})

	t.Run("overlap with confirmed is allowed at request time", func(t *testing.T) {
		f := newFixture(t)

		f.confirmed(t, at(10, 0), at(11, 0))
		b := f.request(t, student, at(10, 0), at(11, 0))
		assert.Equal(t, model.BookingStatusPending, b.Status)
	})

	t.Run("policy violations", func(t *testing.T) {
		tests := []struct {
			name  string
			start time.Time
			end   time.Time
			want  error
		}{
			{"end before start", at(11, 0), at(10, 0), apperr.ErrInvalidInterval},
			{"empty interval", at(10, 0), at(10, 0), apperr.ErrInvalidInterval},
			{"180 minutes", at(10, 0), at(13, 0), apperr.ErrDurationExceeded},
			{"20 days ahead", testNow.Add(20 * 24 * time.Hour), testNow.Add(20*24*time.Hour + time.Hour), apperr.ErrTooFarAhead},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t)

				_, err := f.bookings.RequestBooking(ctx, student, service.RequestBookingInput{
					RoomID: f.room.ID,
					Start:  tt.start,
					End:    tt.end,
				})
				assert.ErrorIs(t, err, tt.want)
				assert.True(t, apperr.IsPolicyViolation(err))
				assert.Empty(t, f.notifier.Types())
			})
		}
	})

	t.Run("exactly 120 minutes is allowed", func(t *testing.T) {
		f := newFixture(t)
		f.request(t, student, at(10, 0), at(12, 0))
	})

	t.Run("unknown room", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.bookings.RequestBooking(ctx, student, service.RequestBookingInput{
			RoomID: uuid.New(),
			Start:  at(10, 0),
			End:    at(11, 0),
		})
		assert.ErrorIs(t, err, apperr.ErrRoomNotFound)
	})

	t.Run("inactive room", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.SetRoomActive(ctx, f.room.ID, false))

		_, err := f.bookings.RequestBooking(ctx, student, service.RequestBookingInput{
			RoomID: f.room.ID,
			Start:  at(10, 0),
			End:    at(11, 0),
		})
		assert.ErrorIs(t, err, apperr.ErrRoomInactive)
	})

	t.Run("invalid input", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.bookings.RequestBooking(ctx, model.Caller{}, service.RequestBookingInput{
			RoomID: f.room.ID,
			Start:  at(10, 0),
			End:    at(11, 0),
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

		_, err = f.bookings.RequestBooking(ctx, student, service.RequestBookingInput{
			Start: at(10, 0),
			End:   at(11, 0),
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	})
}

func TestCreateConfirmedBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("admin creates confirmed booking", func(t *testing.T) {
		f := newFixture(t)

		b := f.confirmed(t, at(10, 0), at(11, 0))
		assert.Equal(t, model.BookingStatusConfirmed, b.Status)
		require.NotNil(t, b.DecidedAt)
		assert.Equal(t, []model.EventType{model.EventBookingCreated}, f.notifier.Types())
	})

	t.Run("student is forbidden", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.bookings.CreateConfirmedBooking(ctx, student, service.CreateBookingInput{
			RoomID: f.room.ID,
			Start:  at(10, 0),
			End:    at(11, 0),
		})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("overlap is rejected, touching is allowed", func(t *testing.T) {
		f := newFixture(t)
		f.confirmed(t, at(10, 0), at(11, 0))

		_, err := f.bookings.CreateConfirmedBooking(ctx, admin, service.CreateBookingInput{
			RoomID: f.room.ID,
			Start:  at(10, 30),
			End:    at(11, 30),
		})
		assert.ErrorIs(t, err, apperr.ErrSlotConflict)

		f.confirmed(t, at(11, 0), at(12, 0))
		f.confirmed(t, at(9, 0), at(10, 0))
	})

	t.Run("pending does not block", func(t *testing.T) {
		f := newFixture(t)
		f.request(t, student, at(10, 0), at(11, 0))
		f.confirmed(t, at(10, 0), at(11, 0))
	})

	t.Run("concurrent creates for the same slot", func(t *testing.T) {
		f := newFixture(t)

		const workers = 16
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.bookings.CreateConfirmedBooking(ctx, admin, service.CreateBookingInput{
					RoomID: f.room.ID,
					Start:  at(10, 0),
					End:    at(11, 0),
				})

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, apperr.ErrSlotConflict):
					conflicts++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, workers-1, conflicts)

		page, err := f.bookings.ListBookings(ctx, admin, service.ListBookingsInput{Status: model.BookingStatusConfirmed})
		require.NoError(t, err)
		assert.Equal(t, 1, page.Total)
	})
}

func TestApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("pending becomes confirmed", func(t *testing.T) {
		f := newFixture(t)
		b := f.request(t, student, at(10, 0), at(11, 0))

		approved, err := f.bookings.Approve(ctx, admin, b.ID, "ok")
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatusConfirmed, approved.Status)
		assert.Equal(t, "ok", approved.AdminNote)
		require.NotNil(t, approved.DecidedAt)
		assert.Equal(t, []model.EventType{model.EventBookingRequested, model.EventBookingApproved}, f.notifier.Types())
	})

	t.Run("conflict keeps booking pending", func(t *testing.T) {
		f := newFixture(t)
		b := f.request(t, student, at(10, 0), at(11, 0))
		f.confirmed(t, at(10, 30), at(11, 30))

		_, err := f.bookings.Approve(ctx, admin, b.ID, "")
		assert.ErrorIs(t, err, apperr.ErrSlotConflict)

		stored, err := f.store.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatusPending, stored.Status)
		assert.Nil(t, stored.DecidedAt)
	})

	t.Run("second of two overlapping requests conflicts", func(t *testing.T) {
		f := newFixture(t)
		first := f.request(t, student, at(10, 0), at(11, 0))
		second := f.request(t, other, at(10, 0), at(11, 0))

		_, err := f.bookings.Approve(ctx, admin, first.ID, "")
		require.NoError(t, err)

		_, err = f.bookings.Approve(ctx, admin, second.ID, "")
		assert.ErrorIs(t, err, apperr.ErrSlotConflict)
	})

	t.Run("student is forbidden", func(t *testing.T) {
		f := newFixture(t)
		b := f.request(t, student, at(10, 0), at(11, 0))

		_, err := f.bookings.Approve(ctx, student, b.ID, "")
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("not pending", func(t *testing.T) {
		f := newFixture(t)
		b := f.confirmed(t, at(10, 0), at(11, 0))

		_, err := f.bookings.Approve(ctx, admin, b.ID, "")
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	})

	t.Run("unknown booking", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.bookings.Approve(ctx, admin, uuid.New(), "")
		assert.ErrorIs(t, err, apperr.ErrBookingNotFound)
	})

	t.Run("policy re-checked at approval", func(t *testing.T) {
		f := newFixture(t)
		b := f.request(t, student, at(10, 0), at(11, 0))

		// горизонт считается от момента одобрения
		f.clock.Advance(-20 * 24 * time.Hour)

		_, err := f.bookings.Approve(ctx, admin, b.ID, "")
		assert.ErrorIs(t, err, apperr.ErrTooFarAhead)

		stored, err := f.store.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatusPending, stored.Status)
	})
}

func TestReject(t *testing.T) {
	ctx := context.Background()

	t.Run("pending becomes rejected", func(t *testing.T) {
		f := newFixture(t)
		b := f.request(t, student, at(10, 0), at(11, 0))

		rejected, err := f.bookings.Reject(ctx, admin, b.ID, "room is reserved for exams")
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatusRejected, rejected.Status)
		assert.Equal(t, "room is reserved for exams", rejected.AdminNote)

		_, err = f.bookings.Approve(ctx, admin, b.ID, "")
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	})

	t.Run("student is forbidden", func(t *testing.T) {
		f := newFixture(t)
		b := f.request(t, student, at(10, 0), at(11, 0))

		_, err := f.bookings.Reject(ctx, student, b.ID, "")
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("confirmed cannot be rejected", func(t *testing.T) {
		f := newFixture(t)
		b := f.confirmed(t, at(10, 0), at(11, 0))

		_, err := f.bookings.Reject(ctx, admin, b.ID, "")
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("owner cancels pending", func(t *testing.T) {
		f := newFixture(t)
		b := f.request(t, student, at(10, 0), at(11, 0))

		require.NoError(t, f.bookings.Cancel(ctx, student, b.ID, "plans changed"))

		stored, err := f.store.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatusCancelled, stored.Status)
		assert.Equal(t, "plans changed", stored.CancelReason)
		require.NotNil(t, stored.CancelledAt)
	})

	t.Run("admin cancels confirmed", func(t *testing.T) {
		f := newFixture(t)
		b := f.request(t, student, at(10, 0), at(11, 0))
		_, err := f.bookings.Approve(ctx, admin, b.ID, "")
		require.NoError(t, err)

		require.NoError(t, f.bookings.Cancel(ctx, admin, b.ID, ""))
	})

	t.Run("non-owner is forbidden and status is unchanged", func(t *testing.T) {
		f := newFixture(t)
		b := f.request(t, student, at(10, 0), at(11, 0))

		err := f.bookings.Cancel(ctx, other, b.ID, "")
		assert.ErrorIs(t, err, apperr.ErrForbidden)

		stored, err := f.store.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatusPending, stored.Status)
	})

	t.Run("terminal status", func(t *testing.T) {
		f := newFixture(t)
		b := f.request(t, student, at(10, 0), at(11, 0))
		require.NoError(t, f.bookings.Cancel(ctx, student, b.ID, ""))

		err := f.bookings.Cancel(ctx, student, b.ID, "")
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	})

	t.Run("cancelled slot can be booked again", func(t *testing.T) {
		f := newFixture(t)
		b := f.confirmed(t, at(10, 0), at(11, 0))
		require.NoError(t, f.bookings.Cancel(ctx, admin, b.ID, ""))

		again := f.request(t, student, at(10, 0), at(11, 0))
		_, err := f.bookings.Approve(ctx, admin, again.ID, "")
		require.NoError(t, err)
	})

	t.Run("unknown booking", func(t *testing.T) {
		f := newFixture(t)

		err := f.bookings.Cancel(ctx, student, uuid.New(), "")
		assert.ErrorIs(t, err, apperr.ErrBookingNotFound)
	})
}

func TestEdit(t *testing.T) {
	ctx := context.Background()

	t.Run("owner moves pending booking", func(t *testing.T) {
		f := newFixture(t)
		f.confirmed(t, at(12, 0), at(13, 0))
		b := f.request(t, student, at(10, 0), at(11, 0))

		// PENDING не проверяется на конфликты
		edited, err := f.bookings.Edit(ctx, student, b.ID, service.EditBookingInput{Start: at(12, 0), End: at(13, 0)})
		require.NoError(t, err)
		assert.Equal(t, at(12, 0), edited.Start)
		assert.Equal(t, model.BookingStatusPending, edited.Status)
	})

	t.Run("confirmed booking ignores itself", func(t *testing.T) {
		f := newFixture(t)
		b := f.confirmed(t, at(10, 0), at(11, 0))

		edited, err := f.bookings.Edit(ctx, admin, b.ID, service.EditBookingInput{Start: at(10, 30), End: at(11, 30)})
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatusConfirmed, edited.Status)
		assert.Equal(t, model.EventBookingUpdated, f.notifier.Types()[1])
	})

	t.Run("confirmed booking conflicts with another", func(t *testing.T) {
		f := newFixture(t)
		b := f.confirmed(t, at(10, 0), at(11, 0))
		f.confirmed(t, at(11, 0), at(12, 0))

		_, err := f.bookings.Edit(ctx, admin, b.ID, service.EditBookingInput{Start: at(10, 30), End: at(11, 30)})
		assert.ErrorIs(t, err, apperr.ErrSlotConflict)

		stored, err := f.store.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, at(10, 0), stored.Start)
	})

	t.Run("policy applies", func(t *testing.T) {
		f := newFixture(t)
		b := f.request(t, student, at(10, 0), at(11, 0))

		_, err := f.bookings.Edit(ctx, student, b.ID, service.EditBookingInput{Start: at(10, 0), End: at(13, 0)})
		assert.ErrorIs(t, err, apperr.ErrDurationExceeded)
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		f := newFixture(t)
		b := f.request(t, student, at(10, 0), at(11, 0))

		_, err := f.bookings.Edit(ctx, other, b.ID, service.EditBookingInput{Start: at(12, 0), End: at(13, 0)})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("terminal booking", func(t *testing.T) {
		f := newFixture(t)
		b := f.request(t, student, at(10, 0), at(11, 0))
		_, err := f.bookings.Reject(ctx, admin, b.ID, "")
		require.NoError(t, err)

		_, err = f.bookings.Edit(ctx, student, b.ID, service.EditBookingInput{Start: at(12, 0), End: at(13, 0)})
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	})
}

func TestListBookings(t *testing.T) {
	ctx := context.Background()

	t.Run("my bookings sorted by start", func(t *testing.T) {
		f := newFixture(t)
		late := f.request(t, student, at(15, 0), at(16, 0))
		early := f.request(t, student, at(9, 0), at(10, 0))
		f.request(t, other, at(12, 0), at(13, 0))

		mine, err := f.bookings.ListMyBookings(ctx, student)
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, early.ID, mine[0].ID)
		assert.Equal(t, late.ID, mine[1].ID)
	})

	t.Run("pending queue for admin", func(t *testing.T) {
		f := newFixture(t)
		f.request(t, student, at(9, 0), at(10, 0))
		f.confirmed(t, at(12, 0), at(13, 0))

		pending, err := f.bookings.ListByStatus(ctx, admin, "")
		require.NoError(t, err)
		assert.Len(t, pending, 1)

		_, err = f.bookings.ListByStatus(ctx, student, "")
		assert.ErrorIs(t, err, apperr.ErrForbidden)

		_, err = f.bookings.ListByStatus(ctx, admin, "UNKNOWN")
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	})

	t.Run("pagination", func(t *testing.T) {
		f := newFixture(t)
		for h := 8; h < 13; h++ {
			f.request(t, student, at(h, 0), at(h+1, 0))
		}

		page, err := f.bookings.ListBookings(ctx, admin, service.ListBookingsInput{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, page.Total)
		assert.Equal(t, 3, page.TotalPages)
		require.Len(t, page.Items, 2)
		assert.Equal(t, at(10, 0), page.Items[0].Start)
	})

	t.Run("defaults and empty result", func(t *testing.T) {
		f := newFixture(t)

		page, err := f.bookings.ListBookings(ctx, admin, service.ListBookingsInput{})
		require.NoError(t, err)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 20, page.PageSize)
		assert.Equal(t, 0, page.Total)
		assert.Equal(t, 1, page.TotalPages)
		assert.Empty(t, page.Items)
	})

	t.Run("filters", func(t *testing.T) {
		f := newFixture(t)
		f.request(t, student, at(9, 0), at(10, 0))
		f.request(t, other, at(12, 0), at(13, 0))

		from := at(11, 0)
		page, err := f.bookings.ListBookings(ctx, admin, service.ListBookingsInput{From: &from})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, other.UserID, page.Items[0].UserID)

		page, err = f.bookings.ListBookings(ctx, admin, service.ListBookingsInput{UserID: student.UserID})
		require.NoError(t, err)
		assert.Equal(t, 1, page.Total)
	})

	t.Run("page size limit", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.bookings.ListBookings(ctx, admin, service.ListBookingsInput{PageSize: 101})
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	})
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("broker down")

	b := f.request(t, student, at(10, 0), at(11, 0))
	assert.Equal(t, model.BookingStatusPending, b.Status)
	assert.Len(t, f.notifier.Types(), 1)
}

func TestHasConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	existing := f.confirmed(t, at(10, 0), at(11, 0))
	f.request(t, student, at(12, 0), at(13, 0))

	tests := []struct {
		name     string
		interval model.Interval
		exclude  *uuid.UUID
		want     bool
	}{
		{"partial overlap", model.NewInterval(at(10, 30), at(11, 30)), nil, true},
		{"touching end", model.NewInterval(at(11, 0), at(12, 0)), nil, false},
		{"touching start", model.NewInterval(at(9, 0), at(10, 0)), nil, false},
		{"containing", model.NewInterval(at(9, 0), at(12, 0)), nil, true},
		{"excluded self", model.NewInterval(at(10, 0), at(11, 0)), &existing.ID, false},
		{"pending ignored", model.NewInterval(at(12, 0), at(13, 0)), nil, false},
		{"invalid interval", model.NewInterval(at(11, 0), at(10, 0)), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.bookings.HasConflict(ctx, f.room.ID, tt.interval, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
