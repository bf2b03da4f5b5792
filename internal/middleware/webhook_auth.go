package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ValidateWebhookSignature checks the X-Hub-Signature-256 header Meta
// attaches to webhook deliveries: "sha256=" followed by the hex HMAC-SHA256
// of the raw body under the app secret. Requests with a missing or wrong
// signature are rejected with 403.
func ValidateWebhookSignature(appSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("X-Hub-Signature-256")
		if header == "" {
			log.Println("⚠️ Webhook request without signature header")
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Missing signature",
			})
		}

		expected := strings.TrimPrefix(header, "sha256=")
		mac := hmac.New(sha256.New, []byte(appSecret))
		mac.Write(c.Body())
		computed := hex.EncodeToString(mac.Sum(nil))

		if !hmac.Equal([]byte(computed), []byte(expected)) {
			log.Println("🚫 Webhook signature mismatch")
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}
		return c.Next()
	}
}
