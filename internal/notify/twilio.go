// Package notify provides the notification collaborator.
//
// This file implements SMS delivery via the Twilio REST API, for deployments
// whose subscribers opted into text alerts instead of mobile push.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioService delivers notifications as SMS. The recipient is an E.164
// phone number.
type TwilioService struct {
	client *twilio.RestClient
	from   string
}

var _ Service = (*TwilioService)(nil)

// NewTwilioService creates a Twilio SMS backend.
func NewTwilioService(accountSID, authToken, from string) (*TwilioService, error) {
	if accountSID == "" || authToken == "" {
		return nil, fmt.Errorf("twilio credentials not set")
	}
	if from == "" {
		return nil, fmt.Errorf("twilio from number not set")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioService{client: client, from: from}, nil
}

// Notify sends one SMS combining title and body. The type and data payload
// have no SMS representation and are dropped.
func (s *TwilioService) Notify(ctx context.Context, recipient, title, body, typ string, data map[string]string) error {
	if recipient == "" {
		return fmt.Errorf("recipient cannot be empty")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(recipient)
	params.SetFrom(s.from)
	params.SetBody(fmt.Sprintf("%s\n%s", title, body))

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		slog.Warn("TwilioService.Notify: send failed", "error", err)
		return fmt.Errorf("twilio send failed: %w", err)
	}
	slog.Debug("TwilioService.Notify: SMS sent", "type", typ)
	return nil
}

// Name identifies the backend in logs.
func (s *TwilioService) Name() string { return "twilio" }
