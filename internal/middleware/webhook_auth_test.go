package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "app-secret"

func newProtectedApp() *fiber.App {
	app := fiber.New()
	app.Post("/webhook", ValidateWebhookSignature(testSecret), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestValidSignaturePasses(t *testing.T) {
	app := newProtectedApp()
	body := `{"object":"whatsapp_business_account"}`

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", sign(body))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMissingSignatureRejected(t *testing.T) {
	app := newProtectedApp()

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader("{}"))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestWrongSignatureRejected(t *testing.T) {
	app := newProtectedApp()

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader("{}"))
	req.Header.Set("X-Hub-Signature-256", sign("different body"))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestTamperedBodyRejected(t *testing.T) {
	app := newProtectedApp()
	body := `{"object":"whatsapp_business_account"}`

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(body+" "))
	req.Header.Set("X-Hub-Signature-256", sign(body))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
