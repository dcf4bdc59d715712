// Package notify доставляет события жизненного цикла брони после коммита.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/room_scheduler/internal/model"
	"go.uber.org/zap"
)

// Notifier получатель событий
type Notifier interface {
	Notify(ctx context.Context, event model.BookingEvent) error
}

// Nop ничего не делает
type Nop struct{}

func (Nop) Notify(context.Context, model.BookingEvent) error { return nil }

// Multi рассылает событие всем получателям; ошибка одного не мешает остальным
type Multi struct {
	targets []Notifier
	logger  *zap.Logger
}

func NewMulti(logger *zap.Logger, targets ...Notifier) *Multi {
	return &Multi{targets: targets, logger: logger}
}

func (m *Multi) Notify(ctx context.Context, event model.BookingEvent) error {
	var errs []error
	for i, target := range m.targets {
		if err := target.Notify(ctx, event); err != nil {
			m.logger.Warn("Notifier failed",
				zap.Int("notifier", i),
				zap.String("event", string(event.Type)),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
