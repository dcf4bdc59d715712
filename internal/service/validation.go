package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/room_scheduler/internal/apperr"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateStruct проверяет запрос на границе движка и возвращает InvalidArgument
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		msg := fmt.Sprintf("%s failed on '%s'", strings.ToLower(fe.Field()), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s failed on '%s=%s'", strings.ToLower(fe.Field()), fe.Tag(), fe.Param())
		}
		return &apperr.Error{Kind: apperr.KindInvalidArgument, Message: msg, Err: err}
	}

	return &apperr.Error{Kind: apperr.KindInvalidArgument, Message: "invalid request", Err: err}
}
