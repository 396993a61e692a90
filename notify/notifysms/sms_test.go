package notifysms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSend(t *testing.T) {
	var got payload
	var authkey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authkey = r.Header.Get("authkey")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(Config{Endpoint: srv.URL, AuthKey: "k-123", SenderID: "CAMPUS"})
	if err := p.Send(context.Background(), "9876543210", "", "Your verification code is 123456"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if authkey != "k-123" {
		t.Errorf("authkey = %q", authkey)
	}
	if got.To != "9876543210" || got.Sender != "CAMPUS" || got.Message == "" {
		t.Errorf("payload = %+v", got)
	}
}

func TestSendGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := New(Config{Endpoint: srv.URL})
	if err := p.Send(context.Background(), "9876543210", "", "code"); err == nil {
		t.Fatal("gateway rejection not surfaced")
	}
}
