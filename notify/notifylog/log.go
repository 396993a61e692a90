// Package notifylog writes outbound messages to an io.Writer instead
// of a real gateway. For development setups and tests.
package notifylog

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Provider implements notify.Sender onto a writer.
type Provider struct {
	mu sync.Mutex
	w  io.Writer
}

// New creates a Provider writing to w.
func New(w io.Writer) *Provider {
	return &Provider{w: w}
}

// Send writes one line per message.
func (p *Provider) Send(_ context.Context, to, subject, body string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.w, "to=%s subject=%q body=%q\n", to, subject, body)
	return err
}
