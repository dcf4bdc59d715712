// Package policy проверяет интервал бронирования на соответствие лимитам.
package policy

import (
	"time"

	"github.com/Freeeeeet/room_scheduler/internal/apperr"
	"github.com/Freeeeeet/room_scheduler/internal/model"
)

const (
	DefaultMaxDurationMinutes = 120
	DefaultMaxAdvanceHours    = 14 * 24
)

// Limits настраиваемые ограничения бронирования
type Limits struct {
	MaxDurationMinutes int
	MaxAdvanceHours    int
}

// DefaultLimits 2 часа на бронь, не дальше 14 дней вперёд
func DefaultLimits() Limits {
	return Limits{
		MaxDurationMinutes: DefaultMaxDurationMinutes,
		MaxAdvanceHours:    DefaultMaxAdvanceHours,
	}
}

// Evaluate возвращает nil или первое нарушение: InvalidInterval, DurationExceeded, TooFarAhead.
// Минуты и часы округляются вниз.
func Evaluate(interval model.Interval, now time.Time, limits Limits) error {
	if !interval.Valid() {
		return apperr.New(apperr.KindInvalidInterval, "end must be after start")
	}

	minutes := int(interval.Duration() / time.Minute)
	if minutes > limits.MaxDurationMinutes {
		return apperr.New(apperr.KindDurationExceeded,
			"booking too long: max is %d minutes", limits.MaxDurationMinutes)
	}

	hoursAhead := int(interval.Start.Sub(now) / time.Hour)
	if hoursAhead > limits.MaxAdvanceHours {
		return apperr.New(apperr.KindTooFarAhead,
			"too far in advance: max is %d hours (%d days) ahead", limits.MaxAdvanceHours, limits.MaxAdvanceHours/24)
	}

	return nil
}
