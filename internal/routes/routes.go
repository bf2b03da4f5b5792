package routes

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/handlers"
	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/middleware"
)

// Setup registers all HTTP routes. Webhook deliveries are signature-checked
// when appSecret is set; leaving it empty (local development) skips the
// check with a warning.
func Setup(app *fiber.App, whatsapp *handlers.WhatsAppHandler, admin *handlers.AdminHandler, appSecret string, enableTestRoutes bool) {
	app.Get("/health", handlers.HealthCheck)

	app.Get("/webhook", whatsapp.VerifyWebhook)
	if appSecret != "" {
		app.Post("/webhook", middleware.ValidateWebhookSignature(appSecret), whatsapp.ReceiveWebhook)
	} else {
		log.Println("⚠️ WHATSAPP_APP_SECRET not set, webhook signature validation disabled")
		app.Post("/webhook", whatsapp.ReceiveWebhook)
	}

	app.Get("/admin/appointments", admin.ListAppointments)

	if enableTestRoutes {
		app.Post("/test/whatsapp", whatsapp.TestMessage)
		log.Println("🧪 Test routes enabled")
	}
}
