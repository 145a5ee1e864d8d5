package sender

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
)

// SMTPConfig is the relay shared by both slots; each slot logs in with its
// own user and uses its key as the password.
type SMTPConfig struct {
	Host               string
	Port               int
	InsecureSkipVerify bool
}

// dialSender is the part of *gomail.Dialer the transport uses.
type dialSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPTransport struct {
	host    string
	dialers [2]dialSender
	creds   [2]Credential
}

func NewSMTPTransport(cfg SMTPConfig, primary, secondary Credential) *SMTPTransport {
	t := &SMTPTransport{host: cfg.Host, creds: [2]Credential{primary, secondary}}
	for i, c := range t.creds {
		d := gomail.NewDialer(cfg.Host, cfg.Port, c.User, c.Key)
		if cfg.InsecureSkipVerify {
			d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
		}
		t.dialers[i] = d
	}
	return t
}

func (t *SMTPTransport) Name() string { return "smtp" }

// Deliver sends a multipart text/html message. gomail has no context
// support, so the call is abandoned (not aborted) when ctx ends first.
func (t *SMTPTransport) Deliver(ctx context.Context, slot Slot, env *domain.Envelope) (string, error) {
	id := fmt.Sprintf("<%s@%s>", uuid.NewString(), t.host)

	msg := gomail.NewMessage()
	msg.SetHeader("From", t.creds[slot].From)
	msg.SetHeader("To", env.To)
	msg.SetHeader("Subject", env.Subject)
	msg.SetHeader("Message-ID", id)
	msg.SetBody("text/plain", env.Text)
	msg.AddAlternative("text/html", env.HTML)

	done := make(chan error, 1)
	go func() { done <- t.dialers[slot].DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("smtp send: %w", err)
		}
		return id, nil
	case <-ctx.Done():
		return "", fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

var _ Transport = (*SMTPTransport)(nil)
