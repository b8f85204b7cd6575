// Package sms delivers verification codes over SMS through an HTTP
// gateway provider.
package sms

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// Sender delivers a short text message to an E.164 phone number.
type Sender interface {
	Send(to, text string) error
}

const defaultAPIURL = "https://api.mobizon.kz/service/message/sendsmsmessage"

// Client sends SMS through the Mobizon gateway. With DryRun set (or no
// API key) it only logs, which keeps codes recoverable in development.
type Client struct {
	APIKey   string
	SenderID string
	DryRun   bool

	apiURL string
	http   *http.Client
}

type sendResponse struct {
	Code int `json:"code"`
	Data struct {
		MessageID string `json:"messageId"`
	} `json:"data"`
}

// NewClient builds a gateway client.
func NewClient(apiKey, senderID string, dryRun bool) *Client {
	return &Client{
		APIKey:   apiKey,
		SenderID: senderID,
		DryRun:   dryRun,
		apiURL:   defaultAPIURL,
		http:     http.DefaultClient,
	}
}

// Send submits one message. Dry-run mode logs and reports success.
func (c *Client) Send(to, text string) error {
	if c.DryRun || c.APIKey == "" {
		slog.Info("sms dry-run delivery", "to", to, "text", text)
		return nil
	}
	form := url.Values{
		"apiKey":    {c.APIKey},
		"recipient": {to},
		"text":      {text},
	}
	if c.SenderID != "" {
		form.Set("from", c.SenderID)
	}
	resp, err := c.http.PostForm(c.apiURL, form)
	if err != nil {
		return fmt.Errorf("send sms request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read sms response: %w", err)
	}
	var result sendResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("parse sms response: %w", err)
	}
	if result.Code != 0 {
		return fmt.Errorf("sms gateway returned error code %d", result.Code)
	}
	return nil
}
