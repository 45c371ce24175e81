package database

import (
	"context"
	"errors"

	"onam_fest/constants"
	"onam_fest/helper"
	"onam_fest/model"
	"onam_fest/utils"
)

// SeedAdmin makes sure an admin account exists when credentials are configured.
// An existing account with the same email is left untouched.
func SeedAdmin(ctx context.Context, users UserStore, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := users.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	hash, err := helper.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &model.User{
		Email:    email,
		Password: hash,
		Name:     "Administrator",
		Role:     constants.ROLE_ADMIN,
		IsActive: true,
	}
	if err := users.Create(ctx, admin); err != nil && !errors.Is(err, ErrDuplicate) {
		return err
	}
	utils.Log.Infow("seeded admin account", "email", admin.Email)
	return nil
}
