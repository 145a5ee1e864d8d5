package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
)

type apiSendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

type apiSendResponse struct {
	ID string `json:"id"`
}

// APITransport posts envelopes to a Resend-compatible HTTP API
// (POST {base}/emails with a bearer key per slot).
type APITransport struct {
	client *resty.Client
	creds  [2]Credential
}

func NewAPITransport(baseURL string, primary, secondary Credential, timeout time.Duration) *APITransport {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &APITransport{client: client, creds: [2]Credential{primary, secondary}}
}

func (t *APITransport) Name() string { return "api" }

func (t *APITransport) Deliver(ctx context.Context, slot Slot, env *domain.Envelope) (string, error) {
	cred := t.creds[slot]
	var out apiSendResponse

	resp, err := t.client.R().
		SetContext(ctx).
		SetAuthToken(cred.Key).
		SetBody(apiSendRequest{
			From:    cred.From,
			To:      []string{env.To},
			Subject: env.Subject,
			HTML:    env.HTML,
			Text:    env.Text,
		}).
		SetResult(&out).
		Post("/emails")
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("mail api returned %d: %s", resp.StatusCode(), resp.String())
	}
	return out.ID, nil
}

var _ Transport = (*APITransport)(nil)
