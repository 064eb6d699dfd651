package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/email-classifier-api/internal/observability"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func perform(t *testing.T, app *fiber.App, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestJWTProtectedExposesClientAndScopes(t *testing.T) {
	app := fiber.New()
	app.Use(JWTProtected(testSecret))
	var clientID interface{}
	var scopes interface{}
	app.Get("/", func(c *fiber.Ctx) error {
		clientID = c.Locals("client_id")
		scopes = c.Locals("scopes")
		return c.SendStatus(fiber.StatusNoContent)
	})

	token := signToken(t, jwt.MapClaims{
		"sub":   "helpdesk-bot",
		"scope": "Classify history",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	resp := perform(t, app, token)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.Equal(t, "helpdesk-bot", clientID)
	require.Equal(t, []string{"classify", "history"}, scopes)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := fiber.New()
	app.Use(JWTProtected(testSecret))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	require.Equal(t, fiber.StatusUnauthorized, perform(t, app, "").StatusCode)
	require.Equal(t, fiber.StatusUnauthorized, perform(t, app, "not-a-token").StatusCode)

	expired := signToken(t, jwt.MapClaims{"sub": "x", "exp": time.Now().Add(-time.Hour).Unix()})
	require.Equal(t, fiber.StatusUnauthorized, perform(t, app, expired).StatusCode)
}

func TestRequireScope(t *testing.T) {
	app := fiber.New()
	app.Use(JWTProtected(testSecret))
	app.Use(RequireScope("history"))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	allowed := signToken(t, jwt.MapClaims{"sub": "ops", "scopes": []string{"history"}})
	require.Equal(t, fiber.StatusOK, perform(t, app, allowed).StatusCode)

	denied := signToken(t, jwt.MapClaims{"sub": "bot", "scope": "classify"})
	require.Equal(t, fiber.StatusForbidden, perform(t, app, denied).StatusCode)
}

func TestRateLimitPerClient(t *testing.T) {
	app := fiber.New()
	app.Use(RateLimit("classify", 2, time.Minute))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	require.Equal(t, fiber.StatusOK, perform(t, app, "").StatusCode)
	require.Equal(t, fiber.StatusOK, perform(t, app, "").StatusCode)
	require.Equal(t, fiber.StatusTooManyRequests, perform(t, app, "").StatusCode)
}

func TestCorrelationIDPropagates(t *testing.T) {
	logger := zerolog.Nop()
	app := fiber.New()
	Register(app, Config{Logger: &logger})

	var seen, local string
	app.Get("/", func(c *fiber.Ctx) error {
		seen = observability.CorrelationID(c.UserContext())
		local = GetCorrelationID(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, "abc-123", resp.Header.Get("X-Correlation-ID"))
	require.Equal(t, "abc-123", seen)
	require.Equal(t, "abc-123", local)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
	require.NotEqual(t, "abc-123", seen)
}

func TestLatencyBucket(t *testing.T) {
	require.Equal(t, "<=5ms", latencyBucket(time.Millisecond))
	require.Equal(t, "<=100ms", latencyBucket(60*time.Millisecond))
	require.Equal(t, ">500ms", latencyBucket(time.Second))
}
