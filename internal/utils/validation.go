package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate проверяет структуру по тегам validate и возвращает apperr.Validation
func Validate(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return apperr.Validation(FormatValidationError(err))
	}
	return nil
}

// FormatValidationError собирает ошибки валидации в читаемую строку
func FormatValidationError(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s]", e.Field(), e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid (%s)", e.Field(), e.Tag()))
		}
	}
	return strings.Join(messages, ", ")
}
