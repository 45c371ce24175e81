package utils

import (
	"errors"

	"onam_fest/model"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HideInternalErrors drops error details from 5xx responses (production).
var HideInternalErrors bool

func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	var errMsg interface{}
	if err != nil && !(HideInternalErrors && status >= fiber.StatusInternalServerError) {
		errMsg = err.Error()
	}
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"error":   errMsg,
	})
}

func ValidationErrorResponse(c *fiber.Ctx, message string, fields []model.FieldError) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"errors":  fields,
	})
}

func SuccessResponse(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "success",
		"data":   data,
	})
}

// FiberErrorHandler renders errors that escape handlers (unknown routes,
// CSRF rejections, panics) with the same envelope as ErrorResponse.
func FiberErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		Log.Errorw("unhandled error", "path", c.Path(), "method", c.Method(), "error", err)
	}
	return ErrorResponse(c, code, message, err)
}

func ApplyPagination(query *gorm.DB, limit, page *int) *gorm.DB {
	if limit != nil && *limit > 0 && page != nil && *page >= 1 {
		query = query.Limit(*limit)
		offset := *limit * (*page - 1)
		query = query.Offset(offset)
	}

	return query
}
