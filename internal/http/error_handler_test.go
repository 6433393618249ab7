package handlers_test

import (
	"bytes"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rocktheauction/internal/domain"
	"rocktheauction/internal/http/handlers"
)

func TestErrorHandlerHidesFiberInternals(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Use(requestid.New())
	app.Get("/err", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusInternalServerError, "db timeout: secret trace")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/err", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "something went wrong")
	assert.NotContains(t, string(body), "secret")
}

func TestErrorHandlerMapsKinds(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	cases := map[string]struct {
		err    error
		status int
	}{
		"/validation": {domain.Validation("title is required"), fiber.StatusBadRequest},
		"/missing":    {domain.NotFound("lot x not found"), fiber.StatusNotFound},
		"/conflict":   {domain.Conflict("taken"), fiber.StatusConflict},
		"/unauth":     {domain.Unauthorized("nope"), fiber.StatusUnauthorized},
		"/plain":      {errors.New("boom"), fiber.StatusInternalServerError},
	}
	for path, tc := range cases {
		app.Get(path, func(c *fiber.Ctx) error { return tc.err })
	}
	for path, tc := range cases {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, tc.status, resp.StatusCode, path)
	}
}

func TestBodySizeLimit(t *testing.T) {
	app, _ := newTestApp(t)
	oversize := bytes.Repeat([]byte("A"), (1<<20)+10)
	req := httptest.NewRequest("POST", "/lots", bytes.NewReader(oversize))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		// fasthttp may refuse the body before a response is written
		return
	}
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestMalformedJSONIsBadRequest(t *testing.T) {
	app, _ := newTestApp(t)
	tok := adminToken(t, app)
	req := httptest.NewRequest("POST", "/lots", bytes.NewReader([]byte(`{"title":`)))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+tok)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
