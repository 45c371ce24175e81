package utils

import (
	"errors"
	"fmt"
	"strings"

	"onam_fest/model"

	"github.com/go-playground/validator/v10"
)

func IsValidValueOfConstant(value string, constantValues []string) bool {
	for _, r := range constantValues {
		if r == value {
			return true
		}
	}
	return false
}

// FieldErrors flattens validator errors into field/message pairs keyed by
// the JSON path of the offending field, e.g. "orderItems[0].quantity".
func FieldErrors(err error) []model.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []model.FieldError{{Field: "body", Message: err.Error()}}
	}
	out := make([]model.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, model.FieldError{
			Field:   jsonPath(fe.Namespace()),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func jsonPath(namespace string) string {
	// drop the root struct name
	if i := strings.Index(namespace, "."); i >= 0 {
		namespace = namespace[i+1:]
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}
