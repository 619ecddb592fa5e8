package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitedApp(t *testing.T, env string, limit int) (*fiber.App, *Server) {
	t.Helper()
	srv, _, _, _ := newTestServer(t, env)
	app := fiber.New()
	app.Post("/limited", srv.RateLimit(limit, time.Minute, "test_resource"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app, srv
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	app, _ := limitedApp(t, "production", 2)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/limited", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/limited", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestRateLimitKeysByUser(t *testing.T) {
	srv, _, _, _ := newTestServer(t, "production")
	app := fiber.New()
	app.Post("/limited", func(c *fiber.Ctx) error {
		c.Locals("userID", c.Get("X-Test-User"))
		return c.Next()
	}, srv.RateLimit(1, time.Minute, "test_resource"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	send := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/limited", nil)
		req.Header.Set("X-Test-User", user)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, send("alice"))
	assert.Equal(t, http.StatusTooManyRequests, send("alice"))
	// A different user has their own window.
	assert.Equal(t, http.StatusOK, send("bob"))
}

func TestRateLimitFailsOpenWithoutRedis(t *testing.T) {
	app, srv := limitedApp(t, "production", 1)
	srv.redis = nil

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/limited", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestRateLimitSkippedOutsideProduction(t *testing.T) {
	app, _ := limitedApp(t, "development", 1)

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/limited", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestCheckRateLimitWindow(t *testing.T) {
	srv, _, _, mr := newTestServer(t, "production")

	for i := 0; i < 2; i++ {
		allowed, err := checkRateLimit(context.Background(), srv.redis, "r", "id", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := checkRateLimit(context.Background(), srv.redis, "r", "id", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// A fresh window starts over.
	mr.FastForward(2 * time.Minute)
	allowed, err = checkRateLimit(context.Background(), srv.redis, "r", "id", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
