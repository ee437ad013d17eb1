package validation

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp() *fiber.App {
	app := fiber.New()
	app.Use(Middleware(Config{MaxRecords: 2}))
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) }
	app.Post("/api/v1/embedding/seed", ok)
	app.Put("/api/v1/embedding/table", ok)
	app.Post("/api/v1/embedding/reset", ok)
	app.Get("/api/v1/embedding", ok)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, contentType, body string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestMiddleware_Seed(t *testing.T) {
	app := newApp()
	const path = "/api/v1/embedding/seed"

	cases := map[string]int{
		`{"seed":"42"}`:         fiber.StatusNoContent,
		`{"seed":42}`:           fiber.StatusNoContent,
		`{"seed":""}`:           fiber.StatusNoContent,
		`{"seed":null}`:         fiber.StatusNoContent,
		`{}`:                    fiber.StatusNoContent,
		`{"seed":"abc"}`:        fiber.StatusNoContent,
		`{"seed":[1]}`:          fiber.StatusBadRequest,
		`{"seed":`:              fiber.StatusBadRequest,
		`{"seed":"` + strings.Repeat("9", 40) + `"}`: fiber.StatusBadRequest,
	}
	for body, want := range cases {
		assert.Equal(t, want, do(t, app, "POST", path, fiber.MIMEApplicationJSON, body), body)
	}
}

func TestMiddleware_Table(t *testing.T) {
	app := newApp()
	const path = "/api/v1/embedding/table"

	cases := map[string]int{
		`{"records":[{"campus":"UA","Biology":"x"}]}`:      fiber.StatusNoContent,
		`{"records":[]}`:                                   fiber.StatusNoContent,
		`{}`:                                               fiber.StatusBadRequest,
		`{"records":null}`:                                 fiber.StatusBadRequest,
		`{"records":"nope"}`:                               fiber.StatusBadRequest,
		`{"records":[{"area":"<script>alert(1)</script>"}]}`: fiber.StatusBadRequest,
		`{"records":[{},{},{}]}`:                           fiber.StatusRequestEntityTooLarge,
	}
	for body, want := range cases {
		assert.Equal(t, want, do(t, app, "PUT", path, fiber.MIMEApplicationJSON, body), body)
	}
}

func TestMiddleware_ContentType(t *testing.T) {
	app := newApp()
	assert.Equal(t, fiber.StatusUnsupportedMediaType,
		do(t, app, "POST", "/api/v1/embedding/seed", "text/plain", `{"seed":"1"}`))
	assert.Equal(t, fiber.StatusNoContent,
		do(t, app, "POST", "/api/v1/embedding/reset", "", ""))
	assert.Equal(t, fiber.StatusNoContent,
		do(t, app, "GET", "/api/v1/embedding", "text/plain", ""))
}
