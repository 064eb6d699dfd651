package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/email-classifier-api/internal/utils"
)

// JWTProtected validates HMAC bearer tokens. The token subject becomes the
// client id used by the rate limiter; "scope"/"scopes" claims are exposed
// to RequireScope.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		if subject, err := claims.GetSubject(); err == nil && strings.TrimSpace(subject) != "" {
			c.Locals("client_id", strings.TrimSpace(subject))
		}
		c.Locals("scopes", extractScopes(claims))

		return c.Next()
	}
}

// RequireScope rejects requests whose token does not grant one of scopes.
func RequireScope(scopes ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(scopes))
	for _, scope := range scopes {
		if normalized := strings.ToLower(strings.TrimSpace(scope)); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		granted, _ := c.Locals("scopes").([]string)
		for _, scope := range granted {
			if _, ok := allowed[scope]; ok {
				return c.Next()
			}
		}
		return utils.SendError(c, fiber.StatusForbidden, "insufficient scope")
	}
}

func extractScopes(claims jwt.MapClaims) []string {
	var scopes []string
	for _, key := range []string{"scope", "scopes"} {
		switch v := claims[key].(type) {
		case string:
			for _, item := range strings.Fields(v) {
				scopes = append(scopes, strings.ToLower(item))
			}
		case []interface{}:
			for _, item := range v {
				if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
					scopes = append(scopes, strings.ToLower(strings.TrimSpace(str)))
				}
			}
		}
	}
	return scopes
}
