package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/revchat/models"
	"github.com/google/go-cmp/cmp"
)

func TestBackendPortOverride(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer s.Close()
	_, port, err := net.SplitHostPort(s.Listener.Addr().String())
	if err != nil {
		t.Fatalf("failed to get port: %v", err)
	}

	// The base URL points at a port with nothing listening, until the
	// override is set.
	b := newBackend(slog.New(slog.DiscardHandler), ClientFlags{BaseURL: "http://127.0.0.1:1", Transport: TransportHTTP}, "")
	req := models.ChatRequest{DeveloperMessage: "dev", UserMessage: "hi", APIKey: "sk-test"}
	noop := func(ctx context.Context, text string) error { return nil }

	if _, err = b.ChatPost(context.Background(), req, noop); err == nil {
		t.Fatal("expected an error without the port override")
	}
	b.SetPortOverride(port)
	text, err := b.ChatPost(context.Background(), req, noop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ok" {
		t.Errorf("expected %q, got %q", "ok", text)
	}

	b.SetPortOverride("not-a-port")
	if _, err = b.ChatPost(context.Background(), req, noop); err == nil {
		t.Error("expected an error for an invalid port")
	}
}

func TestWithDefaults(t *testing.T) {
	flags := ClientFlags{OpenAIAPIKey: "sk-env"}
	t.Run("empty settings are filled in", func(t *testing.T) {
		actual := withDefaults(models.Settings{}, flags)
		expected := models.Settings{APIKey: "sk-env", DeveloperMessage: models.DefaultDeveloperMessage}
		if diff := cmp.Diff(expected, actual); diff != "" {
			t.Error(diff)
		}
	})
	t.Run("saved settings are kept", func(t *testing.T) {
		saved := models.Settings{APIKey: "sk-saved", DeveloperMessage: "dev", Model: "m"}
		if diff := cmp.Diff(saved, withDefaults(saved, flags)); diff != "" {
			t.Error(diff)
		}
	})
}
