package repository

import (
	"errors"

	"github.com/Freeeeeet/room_scheduler/internal/apperr"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgExclusionViolation  = "23P01"
	pgCheckViolation      = "23514"
	pgForeignKeyViolation = "23503"
)

// mapError переводит ошибки базы в виды движка; ошибки движка проходят без изменений
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgExclusionViolation:
			return &apperr.Error{Kind: apperr.KindSlotConflict, Message: "time slot overlaps an existing booking", Err: err}
		case pgForeignKeyViolation:
			return &apperr.Error{Kind: apperr.KindRoomNotFound, Message: "room not found", Err: err}
		case pgCheckViolation:
			return &apperr.Error{Kind: apperr.KindInvalidInterval, Message: "end must be after start", Err: err}
		}
	}

	return apperr.Storage(op, err)
}
