package handler_test

import (
	"net/http"
	"testing"

	"onam_fest/constants"
	"onam_fest/model"

	"github.com/gofiber/fiber/v2"
)

func registerBody() map[string]any {
	return map[string]any{
		"name":      "Anu Mathew",
		"email":     "Anu@College.test",
		"studentId": "S1001",
		"password":  "onam2025",
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t, testSettings())

	var data model.TokenData
	env.do(t, http.MethodPost, "/api/auth/register", registerBody(), "").expect(t, fiber.StatusCreated).decode(t, &data)
	if data.Token == "" || data.User == nil {
		t.Fatalf("unexpected body %+v", data)
	}
	if data.User.Email != "anu@college.test" || data.User.Role != constants.ROLE_USER {
		t.Fatalf("unexpected user %+v", data.User)
	}

	stored, err := env.users.FindByEmail(t.Context(), "anu@college.test")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Password == "onam2025" {
		t.Fatal("password stored in clear")
	}

	env.do(t, http.MethodPost, "/api/auth/register", registerBody(), "").expect(t, fiber.StatusConflict)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t, testSettings())
	body := registerBody()
	body["password"] = "123"
	body["email"] = "not-an-email"

	resp := env.do(t, http.MethodPost, "/api/auth/register", body, "").expect(t, fiber.StatusBadRequest)
	if !hasField(resp.env.Errors, "password") || !hasField(resp.env.Errors, "email") {
		t.Fatalf("errors %v", resp.env.Errors)
	}
}

func TestAuth_StorageUnavailable(t *testing.T) {
	env := newTestEnv(t, testSettings())
	_, token := env.addUser(t, "anu@college.test", constants.ROLE_USER, true)
	env.users.mu.Lock()
	env.users.down = true
	env.users.mu.Unlock()

	env.do(t, http.MethodPost, "/api/auth/register", registerBody(), "").expect(t, fiber.StatusServiceUnavailable)
	env.do(t, http.MethodPost, "/api/auth/login",
		map[string]any{"email": "anu@college.test", "password": "password123"}, "").expect(t, fiber.StatusServiceUnavailable)
	env.do(t, http.MethodGet, "/api/auth/me", nil, token).expect(t, fiber.StatusServiceUnavailable)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, testSettings())
	env.addUser(t, "anu@college.test", constants.ROLE_USER, true)

	var data model.TokenData
	resp := env.do(t, http.MethodPost, "/api/auth/login",
		map[string]any{"email": "ANU@college.test", "password": "password123"}, "").expect(t, fiber.StatusOK)
	resp.decode(t, &data)
	if data.Token == "" {
		t.Fatal("no token")
	}

	var cookie bool
	for _, c := range resp.Cookies() {
		if c.Name == "access_token" && c.Value == data.Token && c.HttpOnly {
			cookie = true
		}
	}
	if !cookie {
		t.Fatal("access_token cookie not set")
	}

	var me model.User
	env.do(t, http.MethodGet, "/api/auth/me", nil, data.Token).expect(t, fiber.StatusOK).decode(t, &me)
	if me.Email != "anu@college.test" {
		t.Fatalf("me = %+v", me)
	}
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv(t, testSettings())
	env.addUser(t, "anu@college.test", constants.ROLE_USER, true)
	env.addUser(t, "gone@college.test", constants.ROLE_USER, false)

	env.do(t, http.MethodPost, "/api/auth/login",
		map[string]any{"email": "anu@college.test", "password": "wrong-password"}, "").expect(t, fiber.StatusUnauthorized)
	env.do(t, http.MethodPost, "/api/auth/login",
		map[string]any{"email": "nobody@college.test", "password": "password123"}, "").expect(t, fiber.StatusUnauthorized)
	env.do(t, http.MethodPost, "/api/auth/login",
		map[string]any{"email": "gone@college.test", "password": "password123"}, "").expect(t, fiber.StatusForbidden)
	env.do(t, http.MethodPost, "/api/auth/login",
		map[string]any{"email": "anu@college.test"}, "").expect(t, fiber.StatusBadRequest)
}

func TestProtectedRoutes(t *testing.T) {
	env := newTestEnv(t, testSettings())
	_, inactiveToken := env.addUser(t, "gone@college.test", constants.ROLE_USER, false)

	env.do(t, http.MethodGet, "/api/auth/me", nil, "").expect(t, fiber.StatusUnauthorized)
	env.do(t, http.MethodGet, "/api/auth/me", nil, "garbage.token.value").expect(t, fiber.StatusUnauthorized)
	env.do(t, http.MethodGet, "/api/auth/me", nil, inactiveToken).expect(t, fiber.StatusForbidden)
}

func TestCreateOrder_LinksSignedInUser(t *testing.T) {
	env := newTestEnv(t, testSettings())
	user, token := env.addUser(t, "anu@college.test", constants.ROLE_USER, true)

	var created model.OrderCreated
	env.do(t, http.MethodPost, "/api/orders", orderBody(), token).expect(t, fiber.StatusCreated).decode(t, &created)

	order, err := env.orders.FindByID(t.Context(), created.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if order.UserID == nil || *order.UserID != user.ID {
		t.Fatalf("order not linked to user %d: %v", user.ID, order.UserID)
	}
}
