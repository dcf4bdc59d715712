package model

import (
	"time"

	"github.com/google/uuid"
)

// SlotReason почему слот недоступен
type SlotReason string

const (
	SlotReasonNone             SlotReason = ""
	SlotReasonClosed           SlotReason = "closed"
	SlotReasonOutsideOpenHours SlotReason = "outside_open_hours"
	SlotReasonBooked           SlotReason = "booked"
	SlotReasonPendingHold      SlotReason = "pending_hold"
)

// Slot вычисляемый кандидат на бронирование, не хранится
type Slot struct {
	RoomID          uuid.UUID  `json:"room_id"`
	Start           time.Time  `json:"start"`
	End             time.Time  `json:"end"`
	Available       bool       `json:"available"`
	Reason          SlotReason `json:"reason,omitempty"`
	PendingConflict bool       `json:"pending_conflict"` // Пересекается с заявкой в ожидании
}
