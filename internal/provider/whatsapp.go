// internal/provider/whatsapp.go
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client sends template messages through the WhatsApp Cloud API
// (graph.facebook.com/<version>/<phone_number_id>/messages).
type Client struct {
	httpClient  *http.Client
	accessToken string
	baseURL     string
}

type ClientConfig struct {
	AccessToken   string
	PhoneNumberID string
	APIVersion    string
	Timeout       time.Duration
	// BaseURL overrides the Graph API host, used in tests.
	BaseURL string
}

func NewClient(cfg ClientConfig) *Client {
	version := cfg.APIVersion
	if version == "" {
		version = "v19.0"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	host := cfg.BaseURL
	if host == "" {
		host = "https://graph.facebook.com"
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		accessToken: cfg.AccessToken,
		baseURL:     fmt.Sprintf("%s/%s/%s/messages", host, version, cfg.PhoneNumberID),
	}
}

type templatePayload struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Template         templateBody `json:"template"`
}

type templateBody struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Send posts one template message. Params, if any, fill the body component
// in order.
func (c *Client) Send(ctx context.Context, phone, templateName, languageCode string, params []string) (string, error) {
	if languageCode == "" {
		languageCode = "en_US"
	}
	payload := templatePayload{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "template",
		Template: templateBody{
			Name:     templateName,
			Language: templateLanguage{Code: languageCode},
		},
	}
	if len(params) > 0 {
		parameters := make([]templateParameter, len(params))
		for i, p := range params {
			parameters[i] = templateParameter{Type: "text", Text: p}
		}
		payload.Template.Components = []templateComponent{
			{Type: "body", Parameters: parameters},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &SendError{Kind: KindTransport, Detail: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", &SendError{Kind: KindTransport, Detail: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &SendError{Kind: KindTransport, Detail: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &SendError{Kind: KindTransport, Detail: err.Error()}
	}

	var parsed sendResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode >= 400 {
		detail := string(raw)
		if parsed.Error != nil {
			detail = fmt.Sprintf("%s (code %d)", parsed.Error.Message, parsed.Error.Code)
		}
		kind := KindProvider
		if resp.StatusCode < 500 {
			kind = KindRejected
		}
		return "", &SendError{Kind: kind, Detail: detail}
	}

	if len(parsed.Messages) == 0 || parsed.Messages[0].ID == "" {
		return "", &SendError{Kind: KindProvider, Detail: "response missing message id"}
	}
	return parsed.Messages[0].ID, nil
}

var _ Sender = (*Client)(nil)
