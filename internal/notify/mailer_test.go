package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPMailerSend(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewHTTPMailer("key-123", "vault@example.com", srv.URL)
	err := m.Send(context.Background(), "b@example.com", "subject", "<p>hi</p>")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAuth != "Bearer key-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["from"] != "vault@example.com" || gotBody["subject"] != "subject" {
		t.Errorf("unexpected payload: %v", gotBody)
	}
}

func TestHTTPMailerSendNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	m := NewHTTPMailer("key-123", "vault@example.com", srv.URL)
	if err := m.Send(context.Background(), "b@example.com", "s", "b"); err == nil {
		t.Fatal("Send should fail on non-2xx status")
	}
}

func TestNewHTTPMailerDisabled(t *testing.T) {
	if m := NewHTTPMailer("", "vault@example.com", "https://api.example.com"); m != nil {
		t.Error("empty API key should disable the mailer")
	}
}

func TestInvitationEmail(t *testing.T) {
	subject, body := InvitationEmail("https://app.example.com", "a@example.com", "GitHub", "inv-1")
	if !strings.Contains(subject, "GitHub") {
		t.Errorf("subject should mention the service: %q", subject)
	}
	if !strings.Contains(body, "https://app.example.com/shared/accept?id=inv-1") {
		t.Error("body should contain the accept link")
	}
	if strings.Contains(body, "password=") {
		t.Error("body must not contain credentials")
	}
}
