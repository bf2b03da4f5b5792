package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// Calls to the Graph API are abandoned after this long and treated as a
// send failure.
const cloudAPITimeout = 10 * time.Second

// CloudAPIMessenger sends messages through the Meta WhatsApp Cloud API.
type CloudAPIMessenger struct {
	httpClient    *http.Client
	token         string
	phoneNumberID string
	apiVersion    string
	baseURL       string
}

// NewCloudAPIMessenger creates a Cloud API messenger from environment variables
func NewCloudAPIMessenger() (*CloudAPIMessenger, error) {
	token := os.Getenv("WHATSAPP_TOKEN")
	phoneNumberID := os.Getenv("NUMBER_ID")
	if token == "" || phoneNumberID == "" {
		return nil, fmt.Errorf("missing WHATSAPP_TOKEN or NUMBER_ID in environment variables")
	}

	apiVersion := os.Getenv("GRAPH_API_VERSION")
	if apiVersion == "" {
		apiVersion = "v23.0"
	}

	return &CloudAPIMessenger{
		httpClient:    &http.Client{Timeout: cloudAPITimeout},
		token:         token,
		phoneNumberID: phoneNumberID,
		apiVersion:    apiVersion,
		baseURL:       "https://graph.facebook.com",
	}, nil
}

func (c *CloudAPIMessenger) messagesURL() string {
	return fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, c.phoneNumberID)
}

func (c *CloudAPIMessenger) post(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagesURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("whatsapp api responded with status %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// SendText sends a plain text message.
func (c *CloudAPIMessenger) SendText(ctx context.Context, to, body string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}
	return c.post(ctx, payload)
}

// SendTemplate sends an approved template message with body parameters.
func (c *CloudAPIMessenger) SendTemplate(ctx context.Context, to, templateName, language string, params []TemplateParameter) error {
	parameters := make([]map[string]string, 0, len(params))
	for _, p := range params {
		parameter := map[string]string{
			"type": "text",
			"text": p.Text,
		}
		if p.Name != "" {
			parameter["parameter_name"] = p.Name
		}
		parameters = append(parameters, parameter)
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template": map[string]interface{}{
			"name":     templateName,
			"language": map[string]string{"code": language},
			"components": []map[string]interface{}{
				{
					"type":       "body",
					"parameters": parameters,
				},
			},
		},
	}
	return c.post(ctx, payload)
}

// SendReadReceipt marks an inbound message as read.
func (c *CloudAPIMessenger) SendReadReceipt(ctx context.Context, messageID string) error {
	if messageID == "" {
		return nil
	}
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	}
	err := c.post(ctx, payload)
	if err != nil {
		log.Printf("sendReadReceipt error: %v", err)
	}
	return err
}
