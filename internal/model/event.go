package model

import "time"

type EventType string

const (
	EventBookingRequested EventType = "booking.requested"
	EventBookingCreated   EventType = "booking.created"
	EventBookingApproved  EventType = "booking.approved"
	EventBookingRejected  EventType = "booking.rejected"
	EventBookingCancelled EventType = "booking.cancelled"
	EventBookingUpdated   EventType = "booking.updated"
)

// BookingEvent событие жизненного цикла, публикуется после коммита
type BookingEvent struct {
	Type       EventType `json:"type"`
	Booking    *Booking  `json:"booking"`
	RoomName   string    `json:"room_name"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
