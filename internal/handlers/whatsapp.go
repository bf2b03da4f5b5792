package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/services"
)

// Webhook payload shapes for the WhatsApp Business Cloud API. Only the
// fields the bot reads are declared.
type webhookBody struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID      string          `json:"id"`
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Field string             `json:"field"`
	Value webhookChangeValue `json:"value"`
}

type webhookChangeValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Messages         []webhookMessage `json:"messages"`
}

type webhookMessage struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
}

// WhatsAppHandler terminates the Meta webhook and dispatches inbound
// messages to the user or admin conversation.
type WhatsAppHandler struct {
	flow        *services.Flow
	adminFlow   *services.AdminFlow
	adminPhone  string
	verifyToken string
	urlToken    string
}

func NewWhatsAppHandler(flow *services.Flow, adminFlow *services.AdminFlow, adminPhone, verifyToken, urlToken string) *WhatsAppHandler {
	return &WhatsAppHandler{
		flow:        flow,
		adminFlow:   adminFlow,
		adminPhone:  adminPhone,
		verifyToken: verifyToken,
		urlToken:    urlToken,
	}
}

// VerifyWebhook answers Meta's subscription handshake.
func (h *WhatsAppHandler) VerifyWebhook(c *fiber.Ctx) error {
	if c.Query("token") != h.urlToken {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && challenge != "" {
		if token == h.verifyToken {
			return c.SendString(challenge)
		}
		log.Println("🚫 Webhook verify token mismatch")
		return c.SendStatus(fiber.StatusForbidden)
	}
	return c.SendStatus(fiber.StatusBadRequest)
}

// ReceiveWebhook handles message deliveries. It always acknowledges fast
// and processes each message in its own goroutine: Meta retries slow or
// failed deliveries and the conversation handlers do their own replies.
func (h *WhatsAppHandler) ReceiveWebhook(c *fiber.Ctx) error {
	if c.Query("token") != h.urlToken {
		log.Println("🚫 Webhook request with wrong URL token")
		return c.SendStatus(fiber.StatusBadRequest)
	}

	var body webhookBody
	if err := c.BodyParser(&body); err != nil {
		log.Printf("❌ Webhook body parse error: %v", err)
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if body.Object != "whatsapp_business_account" {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	for _, entry := range body.Entry {
		for _, change := range entry.Changes {
			for _, message := range change.Value.Messages {
				if message.From == "" || message.ID == "" || message.Type != "text" || message.Text == nil {
					continue
				}
				from, text, id := message.From, message.Text.Body, message.ID
				log.Printf("📩 WhatsApp message from=%s", from)
				if from == h.adminPhone {
					go h.adminFlow.HandleAdminReply(text, id)
				} else {
					go h.flow.HandleUserReply(from, text, id)
				}
			}
		}
	}

	return c.SendString("EVENT_RECEIVED")
}

// TestMessage lets developers poke the conversation without going through
// Meta. Not registered in production.
func (h *WhatsAppHandler) TestMessage(c *fiber.Ctx) error {
	var req struct {
		From string `json:"from"`
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil || req.From == "" || req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "from and text are required",
		})
	}

	if req.From == h.adminPhone {
		go h.adminFlow.HandleAdminReply(req.Text, "")
	} else {
		go h.flow.HandleUserReply(req.From, req.Text, "")
	}
	return c.JSON(fiber.Map{"status": "queued"})
}
