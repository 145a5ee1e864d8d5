// Package sender delivers rendered envelopes through an outbound transport
// while tracking the daily quota of two credential slots.
package sender

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
)

// Credential is the secret and identity of one slot.
type Credential struct {
	Key  string
	From string
	User string
}

// Transport performs the actual delivery call for a slot.
type Transport interface {
	Name() string
	Deliver(ctx context.Context, slot Slot, env *domain.Envelope) (messageID string, err error)
}

// TransportError wraps a delivery failure. It matches domain.ErrTransport
// with errors.Is and unwraps to the transport's own error.
type TransportError struct {
	Slot Slot
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("deliver via %s slot: %v", e.Slot, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == domain.ErrTransport }

// Receipt describes a successful delivery.
type Receipt struct {
	MessageID string
	Slot      Slot
	From      string
}

// Hooks are optional metric callbacks.
type Hooks struct {
	OnDelivered func(slot Slot, latency time.Duration)
	OnError     func(slot Slot)
}

type Sender struct {
	quota     *Quota
	transport Transport
	timeout   time.Duration
	logger    *zap.Logger
	hooks     Hooks
	lastSlot  atomic.Int32
}

func New(quota *Quota, transport Transport, timeout time.Duration, logger *zap.Logger, hooks Hooks) *Sender {
	if hooks.OnDelivered == nil {
		hooks.OnDelivered = func(Slot, time.Duration) {}
	}
	if hooks.OnError == nil {
		hooks.OnError = func(Slot) {}
	}
	return &Sender{
		quota:     quota,
		transport: transport,
		timeout:   timeout,
		logger:    logger.Named("sender"),
		hooks:     hooks,
	}
}

// Send delivers env with the currently active slot. The slot's counter is
// incremented only after the transport reports success; failures never
// rotate slots.
func (s *Sender) Send(ctx context.Context, env *domain.Envelope) (*Receipt, error) {
	msg := *env
	if strings.TrimSpace(msg.Text) == "" {
		msg.Text = StripHTML(msg.HTML)
	}
	if msg.Text == "" {
		msg.Text = msg.Subject
	}

	slot, day, err := s.quota.Active(ctx)
	if err != nil {
		return nil, err
	}
	if prev := Slot(s.lastSlot.Swap(int32(slot))); prev != slot {
		s.logger.Info("active credential slot changed",
			zap.Stringer("from", prev), zap.Stringer("to", slot))
	}

	sendCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	id, err := s.transport.Deliver(sendCtx, slot, &msg)
	if err != nil {
		s.hooks.OnError(slot)
		return nil, &TransportError{Slot: slot, Err: err}
	}
	s.hooks.OnDelivered(slot, time.Since(start))

	// The message is out; a counter failure must not turn into a resend.
	if n, err := s.quota.Record(ctx, day, slot); err != nil {
		s.logger.Error("failed to record send", zap.Stringer("slot", slot), zap.Error(err))
	} else {
		s.logger.Debug("send recorded", zap.Stringer("slot", slot), zap.Int("count", n))
	}

	return &Receipt{MessageID: id, Slot: slot, From: s.quota.From(slot)}, nil
}

func (s *Sender) Usage(ctx context.Context) (*Usage, error) {
	return s.quota.Usage(ctx)
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// StripHTML derives a plain-text body by removing markup and decoding
// entities.
func StripHTML(markup string) string {
	return strings.TrimSpace(html.UnescapeString(tagPattern.ReplaceAllString(markup, "")))
}
