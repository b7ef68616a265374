package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func performRequest(t *testing.T, handler fiber.Handler) (*http.Response, APIResponse) {
	t.Helper()

	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)

	var envelope APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.NoError(t, resp.Body.Close())

	return resp, envelope
}

func TestSendSuccess(t *testing.T) {
	resp, envelope := performRequest(t, func(c *fiber.Ctx) error {
		return SendSuccess(c, "done", fiber.Map{"id": "42"})
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, envelope.Success)
	require.Equal(t, "done", envelope.Message)
	require.NotNil(t, envelope.Data)
}

func TestSendSuccessWithStatusDefaults(t *testing.T) {
	resp, envelope := performRequest(t, func(c *fiber.Ctx) error {
		return SendSuccessWithStatus(c, 0, "", nil)
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "success", envelope.Message)
}

func TestSendErrorWithDetails(t *testing.T) {
	resp, envelope := performRequest(t, func(c *fiber.Ctx) error {
		return SendErrorWithDetails(c, fiber.StatusBadRequest, "validation failed", map[string]string{"MissionID": "failed on uuid4"})
	})

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.False(t, envelope.Success)
	require.Equal(t, "validation failed", envelope.Message)
	require.NotNil(t, envelope.Errors)
}
