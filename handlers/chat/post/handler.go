package post

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/a-h/respond"
	"github.com/a-h/revchat/auth"
	"github.com/a-h/revchat/models"
	"golang.org/x/time/rate"
)

// Models that make the handler fail, so that clients can exercise their
// error handling.
const (
	ModelError = "mock-error"
	ModelHTML  = "mock-html"
)

const TestMessage = `Hello!

I'm a test message.

I'm here to help you test your integration with the API.

If you can see me, then your integration is working!`

const htmlErrorPage = `<!DOCTYPE html>
<html>
<head><title>502 Bad Gateway</title></head>
<body><h1>502 Bad Gateway</h1></body>
</html>
`

// New creates a handler that streams the reply in 4 rune chunks, one chunk
// per interval. An empty reply streams TestMessage.
func New(log *slog.Logger, keys auth.Keys, reply string, interval time.Duration) Handler {
	if reply == "" {
		reply = TestMessage
	}
	return Handler{
		log:      log,
		keys:     keys,
		reply:    reply,
		interval: interval,
	}
}

type Handler struct {
	log      *slog.Logger
	keys     auth.Keys
	reply    string
	interval time.Duration
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	if err = req.Validate(); err != nil {
		h.log.Info("invalid request", slog.Any("error", err))
		respond.WithError(w, err.Error(), http.StatusBadRequest)
		return
	}
	user, ok := h.keys.Authenticate(r, req.APIKey)
	if !ok {
		respond.WithError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	log := h.log.With(slog.String("user", user), slog.String("requestId", r.Header.Get("X-Request-ID")), slog.String("model", req.Model))

	switch req.Model {
	case ModelError:
		log.Info("returning mock error")
		http.Error(w, "mock model failure", http.StatusInternalServerError)
		return
	case ModelHTML:
		log.Info("returning mock HTML page")
		// Not text/html, so that clients have to recognise the document from
		// the body.
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, htmlErrorPage)
		return
	}

	log.Info("streaming reply")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if err = h.writeReply(r, w); err != nil {
		log.Warn("failed to stream reply", slog.Any("error", err))
	}
}

func (h Handler) writeReply(r *http.Request, w http.ResponseWriter) (err error) {
	limit := rate.Inf
	if h.interval > 0 {
		limit = rate.Every(h.interval)
	}
	limiter := rate.NewLimiter(limit, 1)
	flusher, canFlush := w.(http.Flusher)
	for chunk := range slices.Chunk([]rune(h.reply), 4) {
		if err = limiter.Wait(r.Context()); err != nil {
			return err
		}
		if _, err = io.WriteString(w, string(chunk)); err != nil {
			return err
		}
		if canFlush {
			flusher.Flush()
		}
	}
	return nil
}
