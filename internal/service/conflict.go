package service

import (
	"context"

	"github.com/Freeeeeet/room_scheduler/internal/model"
	"github.com/google/uuid"
)

// ConflictDetector ищет пересечения с подтверждёнными бронями.
// Для записи проверка должна идти через Tx той же транзакции.
type ConflictDetector struct {
	store Store
}

func NewConflictDetector(store Store) *ConflictDetector {
	return &ConflictDetector{store: store}
}

// HasConflict проверка вне транзакции, годится только для чтения
func (d *ConflictDetector) HasConflict(ctx context.Context, roomID uuid.UUID, interval model.Interval, excludeID *uuid.UUID) (bool, error) {
	return hasConflict(ctx, d.store, roomID, interval, excludeID)
}

// HasConflictTx проверка внутри транзакции перед записью
func (d *ConflictDetector) HasConflictTx(ctx context.Context, tx Tx, roomID uuid.UUID, interval model.Interval, excludeID *uuid.UUID) (bool, error) {
	return hasConflict(ctx, tx, roomID, interval, excludeID)
}

func hasConflict(ctx context.Context, q OverlapQuerier, roomID uuid.UUID, interval model.Interval, excludeID *uuid.UUID) (bool, error) {
	if !interval.Valid() {
		return false, nil
	}
	return q.HasConfirmedOverlap(ctx, roomID, interval, excludeID)
}

// OverlapsConfirmed то же правило пересечения по уже загруженному списку
func OverlapsConfirmed(interval model.Interval, bookings []*model.Booking, excludeID *uuid.UUID) bool {
	return overlapsStatus(interval, bookings, model.BookingStatusConfirmed, excludeID)
}

func overlapsStatus(interval model.Interval, bookings []*model.Booking, status model.BookingStatus, excludeID *uuid.UUID) bool {
	for _, b := range bookings {
		if b.Status != status {
			continue
		}
		if excludeID != nil && b.ID == *excludeID {
			continue
		}
		if b.Interval().Overlaps(interval) {
			return true
		}
	}
	return false
}
