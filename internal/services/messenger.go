package services

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// TemplateParameter is one body parameter of a WhatsApp template message.
// Name may be empty for templates that use positional parameters.
type TemplateParameter struct {
	Name string
	Text string
}

// Messenger sends outbound WhatsApp messages. All sends are best-effort
// from the flow's perspective: failures are logged by the caller, never
// surfaced to the end user, and calls are bounded by a timeout.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
	SendTemplate(ctx context.Context, to, templateName, language string, params []TemplateParameter) error
	SendReadReceipt(ctx context.Context, messageID string) error
}

// NewMessengerFromEnv builds the configured messaging driver.
// WHATSAPP_PROVIDER selects "cloudapi" (Meta Graph API, default) or "twilio".
func NewMessengerFromEnv() (Messenger, error) {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("WHATSAPP_PROVIDER")))
	switch provider {
	case "", "cloudapi", "meta":
		return NewCloudAPIMessenger()
	case "twilio":
		return NewTwilioMessenger()
	default:
		return nil, fmt.Errorf("unknown WHATSAPP_PROVIDER %q", provider)
	}
}
