package validate

import (
	"strings"

	"onam_fest/constants"
	"onam_fest/model"
	"onam_fest/utils"

	"github.com/gofiber/fiber/v2"
)

func RegisterUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input model.RegisterUserInput
		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INPUT, err)
		}
		input.Name = strings.TrimSpace(input.Name)
		input.Email = strings.ToLower(strings.TrimSpace(input.Email))
		input.StudentID = strings.TrimSpace(input.StudentID)

		if err := validate.Struct(input); err != nil {
			return utils.ValidationErrorResponse(c, constants.ERROR_VALIDATION, utils.FieldErrors(err))
		}
		c.Locals("inputRegisterUser", input)
		return c.Next()
	}
}

func Login() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input model.LoginInput
		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.MISSING_LOGIN_INPUT, err)
		}
		input.Email = strings.ToLower(strings.TrimSpace(input.Email))
		if err := validate.Struct(input); err != nil {
			return utils.ValidationErrorResponse(c, constants.MISSING_LOGIN_INPUT, utils.FieldErrors(err))
		}
		c.Locals("inputLogin", input)
		return c.Next()
	}
}
