package handler

import (
	"errors"
	"time"

	"onam_fest/constants"
	"onam_fest/database"
	"onam_fest/helper"
	"onam_fest/middleware"
	"onam_fest/model"
	"onam_fest/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/copier"
)

func (h *Handler) Register(c *fiber.Ctx) error {
	input, ok := c.Locals("inputRegisterUser").(model.RegisterUserInput)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_PARSE_DATA_TO_LOCALS, nil)
	}

	hash, err := helper.HashPassword(input.Password)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.CAN_NOT_HASH_PASSWORD, err)
	}

	var user model.User
	if err := copier.Copy(&user, &input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, err)
	}
	user.Password = hash
	user.Role = constants.ROLE_USER
	user.IsActive = true

	if err := h.Users.Create(c.UserContext(), &user); err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicate):
			return utils.ErrorResponse(c, fiber.StatusConflict, constants.EMAIL_EXISTS, errors.New("email "+user.Email))
		case errors.Is(err, database.ErrUnavailable):
			return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, constants.ERROR_STORAGE_UNAVAILABLE, err)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_CREATE, err)
	}
	utils.Log.Infow("user registered", "userId", user.ID, "email", user.Email)

	return h.issueToken(c, fiber.StatusCreated, &user)
}

func (h *Handler) Login(c *fiber.Ctx) error {
	input, ok := c.Locals("inputLogin").(model.LoginInput)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_PARSE_DATA_TO_LOCALS, nil)
	}

	user, err := h.Users.FindByEmail(c.UserContext(), input.Email)
	if errors.Is(err, database.ErrNotFound) {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.INVALID_CREDENTIALS, nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, constants.ERROR_STORAGE_UNAVAILABLE, err)
	}

	if !helper.CheckPasswordHash(input.Password, user.Password) {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.INVALID_CREDENTIALS, nil)
	}
	if !user.IsActive {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.ACCOUNT_NOT_ACTIVE, errors.New("active false"))
	}

	return h.issueToken(c, fiber.StatusOK, user)
}

func (h *Handler) issueToken(c *fiber.Ctx, status int, user *model.User) error {
	token, expiresAt, err := helper.GenerateAccessToken(model.TokenClaim{
		UserId: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    token,
		Expires:  expiresAt,
		HTTPOnly: true,
		SameSite: "Lax",
		Secure:   h.secureCookie,
		Path:     "/",
	})

	return utils.SuccessResponse(c, status, model.TokenData{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    "",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: "Lax",
		Secure:   h.secureCookie,
		Path:     "/",
	})
	return utils.SuccessResponse(c, fiber.StatusOK, nil)
}

func (h *Handler) Me(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.MISSING_TOKEN, nil)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, user)
}
