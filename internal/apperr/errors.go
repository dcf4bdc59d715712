package apperr

import (
	"errors"
	"fmt"
)

// Kind классифицирует результат операции движка бронирования
type Kind string

const (
	KindInvalidArgument    Kind = "invalid_argument"
	KindInvalidInterval    Kind = "invalid_interval"
	KindDurationExceeded   Kind = "duration_exceeded"
	KindTooFarAhead        Kind = "too_far_ahead"
	KindSlotConflict       Kind = "slot_conflict"
	KindRoomNotFound       Kind = "room_not_found"
	KindRoomInactive       Kind = "room_inactive"
	KindBookingNotFound    Kind = "booking_not_found"
	KindForbidden          Kind = "forbidden"
	KindInvalidTransition  Kind = "invalid_transition"
	KindStorageUnavailable Kind = "storage_unavailable"
)

// Error ошибка с видом; сравнение через errors.Is идёт по Kind
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is позволяет писать errors.Is(err, apperr.ErrSlotConflict)
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinel-значения для errors.Is
var (
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
	ErrInvalidInterval    = &Error{Kind: KindInvalidInterval}
	ErrDurationExceeded   = &Error{Kind: KindDurationExceeded}
	ErrTooFarAhead        = &Error{Kind: KindTooFarAhead}
	ErrSlotConflict       = &Error{Kind: KindSlotConflict}
	ErrRoomNotFound       = &Error{Kind: KindRoomNotFound}
	ErrRoomInactive       = &Error{Kind: KindRoomInactive}
	ErrBookingNotFound    = &Error{Kind: KindBookingNotFound}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition}
	ErrStorageUnavailable = &Error{Kind: KindStorageUnavailable}
)

// New создаёт ошибку заданного вида
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Storage оборачивает сбой хранилища; такие ошибки можно повторить
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorageUnavailable, Message: op, Err: err}
}

// KindOf возвращает вид ошибки или пустую строку, если это не *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsPolicyViolation true для нарушений политики бронирования
func IsPolicyViolation(err error) bool {
	switch KindOf(err) {
	case KindInvalidInterval, KindDurationExceeded, KindTooFarAhead:
		return true
	}
	return false
}

// IsRetryable true только для временных сбоев хранилища
func IsRetryable(err error) bool {
	return KindOf(err) == KindStorageUnavailable
}
