package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/campushelp/faq-bot/internal/config"
	apperrors "github.com/campushelp/faq-bot/internal/pkg/errors"
)

// TwilioClient sends outbound WhatsApp messages through the Twilio
// REST API. Only the admin relay uses it; inbound webhook replies go
// back as TwiML.
type TwilioClient struct {
	cfg        config.TwilioConfig
	httpClient *http.Client
}

// NewTwilioClient creates a Twilio REST client.
func NewTwilioClient(cfg config.TwilioConfig) *TwilioClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com"
	}

	return &TwilioClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SendWhatsApp sends a message and returns the Twilio message SID.
func (c *TwilioClient) SendWhatsApp(ctx context.Context, to, body string) (string, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimSuffix(c.cfg.BaseURL, "/"), c.cfg.AccountSID)

	form := url.Values{}
	form.Set("Body", body)
	form.Set("From", "whatsapp:"+c.cfg.PhoneNumber)
	form.Set("To", "whatsapp:"+to)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, "creating Twilio request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUnavailable, "Twilio request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUnavailable, "reading Twilio response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.New(apperrors.CodeUnavailable,
			fmt.Sprintf("Twilio returned status %d", resp.StatusCode)).
			WithDetail("body", preview(string(data), 200))
	}

	var out struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, "decoding Twilio response", err)
	}

	return out.SID, nil
}
