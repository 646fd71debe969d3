package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/revchat/models"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClientStreams(t *testing.T) {
	deltas := []string{"Hel", "lo, ", "world"}
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("expected bearer token, got %q", auth)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			fmt.Fprintf(w, "data: {\"id\":\"chatcmpl-1\",\"object\":\"chat.completion.chunk\",\"model\":\"gpt-4.1-mini\",\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\",\"content\":%q}}]}\n\n", d)
			w.(http.Flusher).Flush()
		}
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer s.Close()

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	c := NewOpenAI(log, s.URL)

	var snapshots []string
	text, err := c.ChatPost(context.Background(), testRequest, func(ctx context.Context, text string) error {
		snapshots = append(snapshots, text)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "Hello, world", text)
	require.Equal(t, []string{"Hel", "Hello, ", "Hello, world"}, snapshots)
}

func TestOpenAIClientValidates(t *testing.T) {
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	c := NewOpenAI(log, "http://127.0.0.1:1")
	_, err := c.ChatPost(context.Background(), models.ChatRequest{UserMessage: "hi"}, func(ctx context.Context, text string) error { return nil })
	require.True(t, models.IsValidationError(err))
}
