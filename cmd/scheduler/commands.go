package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/room_scheduler/internal/app"
	"github.com/Freeeeeet/room_scheduler/internal/model"
	"github.com/Freeeeeet/room_scheduler/internal/service"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type command func(ctx context.Context, a *app.App, args []string) error

var commands = map[string]command{
	"seed":         seedCmd,
	"rooms":        roomsCmd,
	"hours":        hoursCmd,
	"closure":      closureCmd,
	"closures":     closuresCmd,
	"activate":     activeCmd(true),
	"deactivate":   activeCmd(false),
	"availability": availabilityCmd,
	"bookings":     bookingsCmd,
	"request":      requestCmd,
	"create":       createCmd,
	"approve":      decideCmd(true),
	"reject":       decideCmd(false),
	"cancel":       cancelCmd,
	"edit":         editCmd,
}

// needsStoredBooking команды, которым нужна бронь из прошлого запуска
var needsStoredBooking = map[string]bool{
	"approve": true,
	"reject":  true,
	"cancel":  true,
	"edit":    true,
}

// callerFlags идентичность вызывающего, в CLI передаётся флагами
type callerFlags struct {
	user string
	role string
}

func (c *callerFlags) register(fs *flag.FlagSet, defaultRole model.Role) {
	fs.StringVar(&c.user, "user", "cli", "caller user id")
	fs.StringVar(&c.role, "role", string(defaultRole), "caller role: STUDENT or ADMIN")
}

func (c *callerFlags) caller() model.Caller {
	return model.Caller{UserID: c.user, Role: model.Role(c.role)}
}

func seedCmd(ctx context.Context, a *app.App, _ []string) error {
	created, err := a.Seed(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("rooms created: %d\n", created)
	return nil
}

func roomsCmd(ctx context.Context, a *app.App, _ []string) error {
	rooms, err := a.Rooms.ListRooms(ctx)
	if err != nil {
		return err
	}
	return printJSON(rooms)
}

func hoursCmd(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("hours", flag.ContinueOnError)
	var who callerFlags
	who.register(fs, model.RoleAdmin)
	roomRef := fs.String("room", "", "room id or name")
	set := fs.String("set", "", "replace hours, e.g. 1-5=08:00-22:00,6=10:00-14:00 (0 is Sunday)")
	clearAll := fs.Bool("clear", false, "remove all hours, the room becomes unrestricted")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}

	room, err := findRoom(ctx, a, *roomRef)
	if err != nil {
		return err
	}

	if *set != "" || *clearAll {
		hours := []model.OpenHours{}
		if !*clearAll {
			if hours, err = parseHours(*set); err != nil {
				return err
			}
		}
		if err := a.Rooms.SetOpenHours(ctx, who.caller(), room.ID, hours); err != nil {
			return err
		}
	}

	hours, err := a.Rooms.OpenHours(ctx, room.ID)
	if err != nil {
		return err
	}
	return printJSON(hours)
}

func closureCmd(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("closure", flag.ContinueOnError)
	var who callerFlags
	who.register(fs, model.RoleAdmin)
	roomRef := fs.String("room", "", "room id or name")
	start := fs.String("start", "", "first closed day, YYYY-MM-DD")
	end := fs.String("end", "", "last closed day, YYYY-MM-DD (default -start)")
	reason := fs.String("reason", "", "why the room is closed")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	if *end == "" {
		*end = *start
	}

	room, err := findRoom(ctx, a, *roomRef)
	if err != nil {
		return err
	}

	closure, err := a.Rooms.AddClosure(ctx, who.caller(), service.AddClosureInput{
		RoomID:    room.ID,
		StartDate: *start,
		EndDate:   *end,
		Reason:    *reason,
	})
	if err != nil {
		return err
	}
	return printJSON(closure)
}

func closuresCmd(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("closures", flag.ContinueOnError)
	roomRef := fs.String("room", "", "room id or name")
	from := fs.String("from", "", "closures ending on or after, YYYY-MM-DD")
	to := fs.String("to", "", "closures starting on or before, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}

	room, err := findRoom(ctx, a, *roomRef)
	if err != nil {
		return err
	}

	closures, err := a.Rooms.Closures(ctx, service.ClosuresQuery{RoomID: room.ID, From: *from, To: *to})
	if err != nil {
		return err
	}
	return printJSON(closures)
}

func activeCmd(active bool) command {
	return func(ctx context.Context, a *app.App, args []string) error {
		fs := flag.NewFlagSet("activate", flag.ContinueOnError)
		var who callerFlags
		who.register(fs, model.RoleAdmin)
		roomRef := fs.String("room", "", "room id or name")
		if err := fs.Parse(args); err != nil {
			return usageError{msg: err.Error()}
		}

		room, err := findRoom(ctx, a, *roomRef)
		if err != nil {
			return err
		}

		room, err = a.Rooms.SetActive(ctx, who.caller(), room.ID, active)
		if err != nil {
			return err
		}
		return printJSON(room)
	}
}

func availabilityCmd(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("availability", flag.ContinueOnError)
	roomRef := fs.String("room", "", "room id or name")
	date := fs.String("date", time.Now().Format(model.DateLayout), "day, YYYY-MM-DD")
	duration := fs.Int("duration", 0, "slot length in minutes (default 60)")
	step := fs.Int("step", 0, "step between slot starts in minutes (default 30)")
	from := fs.String("from", "", "window start HH:MM (default 08:00)")
	to := fs.String("to", "", "window end HH:MM (default 22:00)")
	all := fs.Bool("all", false, "print unavailable slots too")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}

	room, err := findRoom(ctx, a, *roomRef)
	if err != nil {
		return err
	}

	slots, err := a.Availability.ComputeSlots(ctx, service.AvailabilityQuery{
		RoomID:          room.ID,
		Date:            *date,
		DurationMinutes: *duration,
		StepMinutes:     *step,
		OpenStart:       *from,
		OpenEnd:         *to,
	})
	if err != nil {
		return err
	}

	if !*all {
		free := make([]model.Slot, 0, len(slots))
		for _, s := range slots {
			if s.Available {
				free = append(free, s)
			}
		}
		slots = free
	}

	return printJSON(slots)
}

func bookingsCmd(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("bookings", flag.ContinueOnError)
	var who callerFlags
	who.register(fs, model.RoleAdmin)
	roomRef := fs.String("room", "", "filter by room id or name")
	user := fs.String("for", "", "filter by user id")
	status := fs.String("status", "", "filter by status")
	from := fs.String("from", "", "bookings ending at or after, RFC3339")
	to := fs.String("to", "", "bookings starting at or before, RFC3339")
	page := fs.Int("page", 1, "page number")
	pageSize := fs.Int("page-size", 20, "page size, at most 100")
	mine := fs.Bool("mine", false, "list bookings of the caller instead")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}

	if *mine {
		items, err := a.Bookings.ListMyBookings(ctx, who.caller())
		if err != nil {
			return err
		}
		return printJSON(items)
	}

	in := service.ListBookingsInput{
		UserID:   *user,
		Status:   model.BookingStatus(*status),
		Page:     *page,
		PageSize: *pageSize,
	}
	if *roomRef != "" {
		room, err := findRoom(ctx, a, *roomRef)
		if err != nil {
			return err
		}
		in.RoomID = &room.ID
	}
	var err error
	if in.From, err = parseOptionalTime(*from); err != nil {
		return err
	}
	if in.To, err = parseOptionalTime(*to); err != nil {
		return err
	}

	result, err := a.Bookings.ListBookings(ctx, who.caller(), in)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func requestCmd(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("request", flag.ContinueOnError)
	var who callerFlags
	who.register(fs, model.RoleStudent)
	roomRef := fs.String("room", "", "room id or name")
	start := fs.String("start", "", "start, RFC3339")
	end := fs.String("end", "", "end, RFC3339")
	reason := fs.String("reason", "", "why the room is needed")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}

	room, err := findRoom(ctx, a, *roomRef)
	if err != nil {
		return err
	}
	interval, err := parseInterval(*start, *end)
	if err != nil {
		return err
	}

	booking, err := a.Bookings.RequestBooking(ctx, who.caller(), service.RequestBookingInput{
		RoomID: room.ID,
		Start:  interval.Start,
		End:    interval.End,
		Reason: *reason,
	})
	if err != nil {
		return err
	}
	return printJSON(booking)
}

func createCmd(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	var who callerFlags
	who.register(fs, model.RoleAdmin)
	roomRef := fs.String("room", "", "room id or name")
	start := fs.String("start", "", "start, RFC3339")
	end := fs.String("end", "", "end, RFC3339")
	note := fs.String("note", "", "admin note")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}

	room, err := findRoom(ctx, a, *roomRef)
	if err != nil {
		return err
	}
	interval, err := parseInterval(*start, *end)
	if err != nil {
		return err
	}

	booking, err := a.Bookings.CreateConfirmedBooking(ctx, who.caller(), service.CreateBookingInput{
		RoomID: room.ID,
		Start:  interval.Start,
		End:    interval.End,
		Note:   *note,
	})
	if err != nil {
		return err
	}
	return printJSON(booking)
}

func decideCmd(approve bool) command {
	return func(ctx context.Context, a *app.App, args []string) error {
		fs := flag.NewFlagSet("decide", flag.ContinueOnError)
		var who callerFlags
		who.register(fs, model.RoleAdmin)
		id := fs.String("id", "", "booking id")
		note := fs.String("note", "", "admin note")
		if err := fs.Parse(args); err != nil {
			return usageError{msg: err.Error()}
		}

		bookingID, err := uuid.Parse(*id)
		if err != nil {
			return usageError{msg: fmt.Sprintf("invalid booking id %q", *id)}
		}

		var booking *model.Booking
		if approve {
			booking, err = a.Bookings.Approve(ctx, who.caller(), bookingID, *note)
		} else {
			booking, err = a.Bookings.Reject(ctx, who.caller(), bookingID, *note)
		}
		if err != nil {
			return err
		}
		return printJSON(booking)
	}
}

func cancelCmd(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ContinueOnError)
	var who callerFlags
	who.register(fs, model.RoleStudent)
	id := fs.String("id", "", "booking id")
	reason := fs.String("reason", "", "cancel reason")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}

	bookingID, err := uuid.Parse(*id)
	if err != nil {
		return usageError{msg: fmt.Sprintf("invalid booking id %q", *id)}
	}

	if err := a.Bookings.Cancel(ctx, who.caller(), bookingID, *reason); err != nil {
		return err
	}
	fmt.Println("cancelled")
	return nil
}

func editCmd(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	var who callerFlags
	who.register(fs, model.RoleStudent)
	id := fs.String("id", "", "booking id")
	start := fs.String("start", "", "new start, RFC3339")
	end := fs.String("end", "", "new end, RFC3339")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}

	bookingID, err := uuid.Parse(*id)
	if err != nil {
		return usageError{msg: fmt.Sprintf("invalid booking id %q", *id)}
	}
	interval, err := parseInterval(*start, *end)
	if err != nil {
		return err
	}

	booking, err := a.Bookings.Edit(ctx, who.caller(), bookingID, service.EditBookingInput{
		Start: interval.Start,
		End:   interval.End,
	})
	if err != nil {
		return err
	}
	return printJSON(booking)
}

func findRoom(ctx context.Context, a *app.App, ref string) (*model.Room, error) {
	if ref == "" {
		return nil, usageError{msg: "-room is required"}
	}
	room, err := a.FindRoom(ctx, ref)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, fmt.Errorf("room %q not found", ref)
	}
	return room, nil
}

func parseInterval(start, end string) (model.Interval, error) {
	s, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return model.Interval{}, usageError{msg: fmt.Sprintf("invalid -start %q", start)}
	}
	e, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return model.Interval{}, usageError{msg: fmt.Sprintf("invalid -end %q", end)}
	}
	return model.NewInterval(s, e), nil
}

// parseHours разбирает "1-5=08:00-22:00,6=10:00-14:00"
func parseHours(raw string) ([]model.OpenHours, error) {
	hours := make([]model.OpenHours, 0)

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		days, window, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, usageError{msg: fmt.Sprintf("invalid hours %q, want DAYS=HH:MM-HH:MM", entry)}
		}

		first, last, err := parseWeekdays(days)
		if err != nil {
			return nil, err
		}

		from, to, ok := strings.Cut(window, "-")
		if !ok {
			return nil, usageError{msg: fmt.Sprintf("invalid window %q", window)}
		}
		open, err := model.ParseTimeOfDay(from)
		if err != nil {
			return nil, usageError{msg: err.Error()}
		}
		closeAt, err := model.ParseTimeOfDay(to)
		if err != nil {
			return nil, usageError{msg: err.Error()}
		}

		for d := first; d <= last; d++ {
			hours = append(hours, model.OpenHours{Weekday: d, Open: open, Close: closeAt})
		}
	}

	return hours, nil
}

func parseWeekdays(raw string) (time.Weekday, time.Weekday, error) {
	from, to, isRange := strings.Cut(raw, "-")
	if !isRange {
		to = from
	}

	first, err := strconv.Atoi(from)
	if err != nil || first < 0 || first > 6 {
		return 0, 0, usageError{msg: fmt.Sprintf("invalid weekday %q, want 0-6", from)}
	}
	last, err := strconv.Atoi(to)
	if err != nil || last < first || last > 6 {
		return 0, 0, usageError{msg: fmt.Sprintf("invalid weekday range %q", raw)}
	}
	return time.Weekday(first), time.Weekday(last), nil
}

func parseOptionalTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, usageError{msg: fmt.Sprintf("invalid time %q", raw)}
	}
	return &t, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
