package middleware

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/utils"
)

func newTestApp(jwtService *utils.JWTService) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c fiber.Ctx, err error) error {
			return c.Status(apperr.HTTPStatus(apperr.CodeOf(err))).SendString(err.Error())
		},
	})
	app.Use(AuthMiddleware(jwtService))
	app.Get("/me", func(c fiber.Ctx) error {
		userID, err := UserID(c)
		if err != nil {
			return err
		}
		return c.SendString(userID.String())
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := utils.NewJWTService("secret")
	app := newTestApp(jwtService)
	userID := uuid.New()
	token, err := jwtService.GenerateToken(userID)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing header", header: "", status: fiber.StatusUnauthorized},
		{name: "wrong scheme", header: "Token " + token, status: fiber.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc", status: fiber.StatusUnauthorized},
		{name: "valid", header: "Bearer " + token, status: fiber.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestAuthMiddlewarePassesUserToHandler(t *testing.T) {
	jwtService := utils.NewJWTService("secret")
	app := newTestApp(jwtService)
	userID := uuid.New()
	token, err := jwtService.GenerateToken(userID)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, userID.String(), string(body))
}

func TestAuthMiddlewareRejectsBeforeHandler(t *testing.T) {
	jwtService := utils.NewJWTService("secret")
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c fiber.Ctx, err error) error {
			return c.Status(apperr.HTTPStatus(apperr.CodeOf(err))).SendString(err.Error())
		},
	})
	called := false
	app.Use(AuthMiddleware(jwtService))
	app.Get("/me", func(c fiber.Ctx) error {
		called = true
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.False(t, called)
}
