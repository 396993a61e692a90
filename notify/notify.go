// Package notify abstracts outbound member messaging. The engine
// only ever hands a provider a destination and a short text; which
// wire carries it (SES, an SMS gateway, a log for development) is the
// provider's business.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// Channel names a delivery path.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// ErrUnconfigured is returned when no provider backs the requested
// channel.
var ErrUnconfigured = errors.New("no provider for channel")

// Sender delivers one message to one destination. Implementations
// must honor ctx cancellation; the engine runs sends under a
// per-channel timeout.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Router dispatches by channel. A nil provider leaves that channel
// unconfigured.
type Router struct {
	SMS   Sender
	Email Sender
}

// Send delivers over the named channel.
func (r *Router) Send(ctx context.Context, ch Channel, to, subject, body string) error {
	var s Sender
	switch ch {
	case ChannelSMS:
		s = r.SMS
	case ChannelEmail:
		s = r.Email
	}
	if s == nil {
		return fmt.Errorf("%w: %s", ErrUnconfigured, ch)
	}
	return s.Send(ctx, to, subject, body)
}

// Channels lists the configured channels in delivery-preference
// order.
func (r *Router) Channels() []Channel {
	var out []Channel
	if r.SMS != nil {
		out = append(out, ChannelSMS)
	}
	if r.Email != nil {
		out = append(out, ChannelEmail)
	}
	return out
}
