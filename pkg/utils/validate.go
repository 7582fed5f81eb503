package utils

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value against its struct validation tags.
func Validate[T any](value T) (T, error) {
	if err := validate.Struct(value); err != nil {
		return value, ValidationErrorToString(value, err)
	}

	return value, nil
}

// ValidateValue checks a single value against a validation tag.
func ValidateValue(value any, tag string) error {
	err := validate.Var(value, tag)
	if err != nil {
		return ValidationErrorToString(value, err)
	}
	return nil
}

// ValidationErrorToString flattens validator errors into one readable message.
func ValidationErrorToString(input any, err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		msg := ""
		for _, fe := range verrs {
			msg += fmt.Sprintf("\n • Failed %T validation for field '%s': rule '%s' expected '%s', got '%v'.", input, fe.StructField(), fe.Tag(), fe.Param(), fe.Value())
		}
		return errors.New(msg)
	}

	return err
}
