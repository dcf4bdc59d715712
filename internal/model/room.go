package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DateLayout формат календарной даты
const DateLayout = "2006-01-02"

// TimeOfDay время суток в минутах от полуночи
type TimeOfDay int

// ParseTimeOfDay разбирает строку "HH:MM"
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// On возвращает момент времени t в указанный день по местным часам,
// в дни перевода часов смещение от полуночи не равно t
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, int(t)/60, int(t)%60, 0, 0, day.Location())
}

// OpenHours окно работы комнаты в день недели
type OpenHours struct {
	Weekday time.Weekday `json:"weekday"` // 0 = Sunday, 6 = Saturday
	Open    TimeOfDay    `json:"open"`
	Close   TimeOfDay    `json:"close"`
}

// Closure закрытие комнаты на диапазон дат (включительно)
type Closure struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Reason    string    `json:"reason"`
}

// Covers проверяет, попадает ли день в закрытие
func (c Closure) Covers(day time.Time) bool {
	d := day.Format(DateLayout)
	return d >= c.StartDate.Format(DateLayout) && d <= c.EndDate.Format(DateLayout)
}

type Room struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Building  string      `json:"building"`
	Floor     int         `json:"floor"`
	Capacity  int         `json:"capacity"`
	IsActive  bool        `json:"is_active"`
	OpenHours []OpenHours `json:"open_hours"`
	Closures  []Closure   `json:"closures"`
	CreatedAt time.Time   `json:"created_at"`
}

// OpenHoursFor окна работы на день недели, отсортированные по началу
func (r *Room) OpenHoursFor(weekday time.Weekday) []OpenHours {
	var out []OpenHours
	for _, h := range r.OpenHours {
		if h.Weekday == weekday {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Open < out[j].Open })
	return out
}

// ClosedOn возвращает закрытие, покрывающее день, если оно есть
func (r *Room) ClosedOn(day time.Time) (*Closure, bool) {
	for i := range r.Closures {
		if r.Closures[i].Covers(day) {
			return &r.Closures[i], true
		}
	}
	return nil, false
}

// ValidateOpenHours проверяет окна: open < close и без пересечений в пределах дня недели
func ValidateOpenHours(hours []OpenHours) error {
	byDay := make(map[time.Weekday][]OpenHours)
	for _, h := range hours {
		if h.Weekday < time.Sunday || h.Weekday > time.Saturday {
			return fmt.Errorf("invalid weekday %d", h.Weekday)
		}
		if h.Open < 0 || h.Close > 24*60 || h.Open >= h.Close {
			return fmt.Errorf("invalid open hours %s-%s on %s", h.Open, h.Close, h.Weekday)
		}
		byDay[h.Weekday] = append(byDay[h.Weekday], h)
	}

	for weekday, list := range byDay {
		sort.Slice(list, func(i, j int) bool { return list[i].Open < list[j].Open })
		for i := 1; i < len(list); i++ {
			if list[i].Open < list[i-1].Close {
				return fmt.Errorf("overlapping open hours on %s", weekday)
			}
		}
	}

	return nil
}
