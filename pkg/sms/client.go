// Package sms provides a thin client for the platform's SMS gateway.
//
// The gateway exposes a single JSON endpoint; delivery receipts are handled
// by the gateway itself and are not surfaced here.
package sms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	baseURL string
	apiKey  string
	sender  string
	client  *http.Client
}

func NewClient(baseURL, apiKey, sender string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		sender:  sender,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type sendMessageRequest struct {
	To     string `json:"to"`     // recipient phone number, E.164
	From   string `json:"from"`   // registered sender id
	Text   string `json:"text"`   // message body
	APIKey string `json:"api_key"`
}

// Send delivers a single SMS. A non-2xx gateway response is returned as an
// error so the processor's retry path picks it up.
func (c *Client) Send(to, msg string) error {
	reqBody := sendMessageRequest{
		To:     to,
		From:   c.sender,
		Text:   msg,
		APIKey: c.apiKey,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.client.Post(c.baseURL+"/v1/messages", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway error: %s", resp.Status)
	}

	return nil
}
