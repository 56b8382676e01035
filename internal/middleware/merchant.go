package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/sugampay/internal/utils"
)

const merchantContextKey = "merchantApp"

// MerchantAuth validates merchant bearer tokens and stores the token's source
// app in context. With an empty secret every request passes unauthenticated.
func MerchantAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		sourceApp, err := utils.ParseMerchantToken(secret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(merchantContextKey, sourceApp)
		return c.Next()
	}
}

// GetMerchantApp returns the authenticated source app, if any.
func GetMerchantApp(c *fiber.Ctx) (string, bool) {
	app, ok := c.Locals(merchantContextKey).(string)
	return app, ok && app != ""
}
