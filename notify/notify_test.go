package notify

import (
	"context"
	"errors"
	"testing"
)

type recordingSender struct {
	to, subject, body string
	err               error
}

func (r *recordingSender) Send(_ context.Context, to, subject, body string) error {
	r.to, r.subject, r.body = to, subject, body
	return r.err
}

func TestRouterDispatch(t *testing.T) {
	sms := &recordingSender{}
	email := &recordingSender{}
	r := &Router{SMS: sms, Email: email}

	if err := r.Send(context.Background(), ChannelSMS, "9876543210", "", "code"); err != nil {
		t.Fatalf("sms send: %v", err)
	}
	if sms.to != "9876543210" || email.to != "" {
		t.Fatalf("sms dispatch went astray: sms=%q email=%q", sms.to, email.to)
	}

	if err := r.Send(context.Background(), ChannelEmail, "a@b.com", "Code", "code"); err != nil {
		t.Fatalf("email send: %v", err)
	}
	if email.to != "a@b.com" {
		t.Fatalf("email dispatch went astray: %q", email.to)
	}
}

func TestRouterUnconfigured(t *testing.T) {
	r := &Router{Email: &recordingSender{}}
	if err := r.Send(context.Background(), ChannelSMS, "9876543210", "", "code"); !errors.Is(err, ErrUnconfigured) {
		t.Fatalf("expected ErrUnconfigured, got %v", err)
	}
}

func TestRouterChannels(t *testing.T) {
	r := &Router{SMS: &recordingSender{}, Email: &recordingSender{}}
	chs := r.Channels()
	if len(chs) != 2 || chs[0] != ChannelSMS || chs[1] != ChannelEmail {
		t.Fatalf("channels = %v", chs)
	}
	if got := (&Router{}).Channels(); len(got) != 0 {
		t.Fatalf("empty router lists channels: %v", got)
	}
}
