package validate

import (
	"fmt"
	"strings"

	"onam_fest/constants"
	"onam_fest/model"
	"onam_fest/utils"

	"github.com/gofiber/fiber/v2"
)

// CreateOrder coerces the request body into model.CreateOrderInput and checks
// field rules, the totals invariant and UPI details before any handler runs.
func CreateOrder() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input model.CreateOrderInput
		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INPUT, err)
		}
		normalizeOrderInput(&input)

		if err := validate.Struct(input); err != nil {
			return utils.ValidationErrorResponse(c, constants.ERROR_VALIDATION, utils.FieldErrors(err))
		}

		if !model.TotalsMatch(input.OrderItems, input.TotalAmount) {
			msg := fmt.Sprintf("items sum to %.2f but totalAmount is %.2f", model.SumLineTotals(input.OrderItems), input.TotalAmount)
			return utils.ValidationErrorResponse(c, constants.ERROR_TOTAL_MISMATCH, []model.FieldError{{
				Field:   "totalAmount",
				Message: msg,
			}})
		}

		if input.Payment.Method == constants.PAYMENT_UPI {
			var fields []model.FieldError
			if input.Payment.UpiID == "" {
				fields = append(fields, model.FieldError{Field: "payment.upiId", Message: "is required for UPI payments"})
			}
			if input.Payment.TransactionID == "" {
				fields = append(fields, model.FieldError{Field: "payment.transactionId", Message: "is required for UPI payments"})
			}
			if len(fields) > 0 {
				return utils.ValidationErrorResponse(c, constants.ERROR_UPI_DETAILS_REQUIRED, fields)
			}
		}

		c.Locals("inputCreateOrder", input)
		return c.Next()
	}
}

func normalizeOrderInput(input *model.CreateOrderInput) {
	s := &input.StudentInfo
	s.Name = strings.TrimSpace(s.Name)
	s.StudentID = strings.TrimSpace(s.StudentID)
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	s.Phone = strings.TrimSpace(s.Phone)
	s.Course = strings.TrimSpace(s.Course)
	s.Department = strings.TrimSpace(s.Department)
	s.Year = strings.TrimSpace(s.Year)
	s.Hostel = strings.TrimSpace(s.Hostel)

	p := &input.Payment
	p.Method = strings.ToLower(strings.TrimSpace(p.Method))
	p.UpiID = strings.TrimSpace(p.UpiID)
	p.TransactionID = strings.TrimSpace(p.TransactionID)
	input.Notes = strings.TrimSpace(input.Notes)
}

func UpdateOrderStatus() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input model.UpdateOrderStatusInput
		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INPUT, err)
		}
		input.Status = strings.ToLower(strings.TrimSpace(input.Status))
		if err := validate.Struct(input); err != nil {
			return utils.ValidationErrorResponse(c, constants.ERROR_VALIDATION, utils.FieldErrors(err))
		}
		if !model.IsOrderStatus(input.Status) {
			return utils.ValidationErrorResponse(c, constants.INVALID_STATUS, []model.FieldError{{
				Field:   "status",
				Message: "must be one of: " + strings.Join(constants.ORDER_STATUSES, " "),
			}})
		}
		c.Locals("inputUpdateOrderStatus", input)
		return c.Next()
	}
}

func FilterOrders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var filter model.FilterOrder
		if err := c.QueryParser(&filter); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INPUT, err)
		}
		filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
		if filter.Status != "" && !model.IsOrderStatus(filter.Status) {
			return utils.ValidationErrorResponse(c, constants.INVALID_STATUS, []model.FieldError{{
				Field:   "status",
				Message: "must be one of: " + strings.Join(constants.ORDER_STATUSES, " "),
			}})
		}
		c.Locals("inputFilterOrder", filter)
		return c.Next()
	}
}
