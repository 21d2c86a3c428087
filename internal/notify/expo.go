// Package notify provides the notification collaborator.
//
// This file implements token-based mobile push via the Expo push API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultExpoPushURL = "https://exp.host/--/api/v2/push/send"
	expoTimeout        = 8 * time.Second
)

// ExpoService delivers notifications as Expo push messages. The recipient is
// an Expo push token.
type ExpoService struct {
	url    string
	client *http.Client
}

var _ Service = (*ExpoService)(nil)

// NewExpoService creates an Expo push backend. An empty url takes the public
// Expo endpoint.
func NewExpoService(url string) *ExpoService {
	if url == "" {
		url = defaultExpoPushURL
	}
	return &ExpoService{url: url, client: &http.Client{Timeout: expoTimeout}}
}

type expoPushMessage struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound,omitempty"`
}

// Notify posts one push message. Delivery receipts are not tracked; the
// collaborator contract is fire-and-forget.
func (s *ExpoService) Notify(ctx context.Context, recipient, title, body, typ string, data map[string]string) error {
	if recipient == "" {
		return fmt.Errorf("push token cannot be empty")
	}
	if data == nil {
		data = map[string]string{}
	}
	data["type"] = typ

	payload, err := json.Marshal([]expoPushMessage{{To: recipient, Title: title, Body: body, Data: data, Sound: "default"}})
	if err != nil {
		return fmt.Errorf("failed to marshal push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}
	slog.Debug("ExpoService.Notify: push accepted", "type", typ)
	return nil
}

// Name identifies the backend in logs.
func (s *ExpoService) Name() string { return "expo" }
