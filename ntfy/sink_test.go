package ntfy

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/timgluz/nrwatch/alert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSinkPostsNotification(t *testing.T) {
	var received Notification
	var auth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	t.Setenv("TEST_NTFY_TOKEN", "tk_123")

	config := Config{Endpoint: server.URL, Topic: "nr-alerts", TokenEnv: "TEST_NTFY_TOKEN"}
	config.ApplyDefaults()

	sink := NewSinkFromConfig(config, server.Client(), discardLogger())
	msg := alert.NewMessage(alert.KindApdex, "1", "web", 0.5, alert.DefaultApdexRule)

	if err := sink.Deliver(context.Background(), msg); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}

	if received.Topic != "nr-alerts" {
		t.Errorf("unexpected topic %q", received.Topic)
	}
	if received.Message != "New Relic application *web*'s apdex score is 0.5" {
		t.Errorf("unexpected message %q", received.Message)
	}
	if !received.Markdown {
		t.Errorf("expected markdown to be enabled by default")
	}
	if received.Priority != DefaultNtfyPriority {
		t.Errorf("unexpected priority %d", received.Priority)
	}
	if auth != "Bearer tk_123" {
		t.Errorf("unexpected authorization header %q", auth)
	}
}

func TestSinkWithoutTokenSendsNoAuthorization(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	config := Config{Endpoint: server.URL, Topic: "public", TokenEnv: "TEST_NTFY_TOKEN_UNSET"}
	config.ApplyDefaults()

	sink := NewSinkFromConfig(config, server.Client(), discardLogger())
	if err := sink.Deliver(context.Background(), alert.NewMessage(alert.KindErrorRate, "2", "api", 9, alert.DefaultErrorRule)); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if auth != "" {
		t.Errorf("expected no authorization header, got %q", auth)
	}
}

func TestSendFailsOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewHTTPNotifier(server.URL, server.Client(), discardLogger())
	if err := notifier.Send(context.Background(), NewNotification("t", "title", "body")); err == nil {
		t.Fatalf("expected error for 500 response")
	}
}

func TestConfigEnabled(t *testing.T) {
	config := DefaultNtfyConfig()
	if config.Enabled() {
		t.Errorf("config without topic must be disabled")
	}

	config.Topic = "alerts"
	if !config.Enabled() {
		t.Errorf("config with topic must be enabled")
	}
}
