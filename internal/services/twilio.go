package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioMessenger sends WhatsApp messages via Twilio. Template names are
// mapped to the Content SIDs configured in the Twilio console.
type TwilioMessenger struct {
	client      *twilio.RestClient
	from        string // Format: "whatsapp:+14155238886"
	contentSIDs map[string]string
}

// NewTwilioMessenger creates a new Twilio messenger from environment variables
func NewTwilioMessenger() (*TwilioMessenger, error) {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_WHATSAPP_FROM")

	if accountSid == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioMessenger{
		client: client,
		from:   from,
		contentSIDs: map[string]string{
			TemplateBookingNotification:      os.Getenv("TWILIO_SID_BOOKING"),
			TemplateRescheduleNotification:   os.Getenv("TWILIO_SID_RESCHEDULE"),
			TemplateCancellationNotification: os.Getenv("TWILIO_SID_CANCELLATION"),
			TemplateAppointmentReminder:      os.Getenv("TWILIO_SID_REMINDER"),
		},
	}, nil
}

// SendText sends a WhatsApp text message via Twilio
func (t *TwilioMessenger) SendText(_ context.Context, to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:+%s", to))
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send message: %w", err)
	}
	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, *resp.ErrorMessage)
	}
	return nil
}

// SendTemplate sends a WhatsApp template message via Twilio content SIDs
func (t *TwilioMessenger) SendTemplate(_ context.Context, to, templateName, _ string, params []TemplateParameter) error {
	contentSid := t.contentSIDs[templateName]
	if contentSid == "" {
		return fmt.Errorf("no Twilio content SID configured for template %q", templateName)
	}

	messageParams := &twilioApi.CreateMessageParams{}
	messageParams.SetFrom(t.from)
	messageParams.SetTo(fmt.Sprintf("whatsapp:+%s", to))
	messageParams.SetContentSid(contentSid)

	if len(params) > 0 {
		variables := make(map[string]string, len(params))
		for i, p := range params {
			name := p.Name
			if name == "" {
				name = fmt.Sprintf("%d", i+1)
			}
			variables[name] = p.Text
		}
		variablesJSON, err := json.Marshal(variables)
		if err != nil {
			return fmt.Errorf("marshal content variables: %w", err)
		}
		messageParams.SetContentVariables(string(variablesJSON))
	}

	resp, err := t.client.Api.CreateMessage(messageParams)
	if err != nil {
		return fmt.Errorf("twilio send template: %w", err)
	}
	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, *resp.ErrorMessage)
	}
	return nil
}

// SendReadReceipt is a no-op on Twilio; the API has no read-receipt call
// for inbound WhatsApp messages.
func (t *TwilioMessenger) SendReadReceipt(_ context.Context, messageID string) error {
	if messageID != "" {
		log.Printf("read receipts not supported on twilio, skipping for %s", messageID)
	}
	return nil
}
