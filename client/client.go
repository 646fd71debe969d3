package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/jsonapi"
	"github.com/a-h/revchat/models"
	"github.com/a-h/revchat/stream"
	"github.com/google/uuid"
)

// ErrUnexpectedResponse is returned when the endpoint responds with an HTML
// page, which is what proxies and dev servers send when the chat backend
// isn't there.
var ErrUnexpectedResponse = errors.New("backend returned an unexpected response")

type Option func(*Client)

// WithBearerAuth sends the API key in an Authorization header as well as in
// the body.
func WithBearerAuth() Option {
	return func(c *Client) {
		c.bearer = true
	}
}

// WithBufferedResponse reads the whole response before publishing it.
func WithBufferedResponse() Option {
	return func(c *Client) {
		c.buffered = true
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func New(baseURL string, opts ...Option) Client {
	c := Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		log:     slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

type Client struct {
	baseURL  string
	bearer   bool
	buffered bool
	log      *slog.Logger
}

// ChatPost sends the request to /api/chat and passes the response text
// received so far to f after each chunk. The complete text is returned.
func (c Client) ChatPost(ctx context.Context, req models.ChatRequest, f stream.Sink) (text string, err error) {
	if err = req.Validate(); err != nil {
		return "", err
	}
	url, err := jsonapi.URL(c.baseURL).Path("api", "chat").String()
	if err != nil {
		return "", fmt.Errorf("failed to create chat URL: %w", err)
	}
	buf, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	opts := []jsonapi.Opt{jsonapi.WithRequestHeader("X-Request-ID", requestID)}
	if c.bearer {
		opts = append(opts, jsonapi.WithRequestHeader("Authorization", "Bearer "+req.APIKey))
	}

	log := c.log.With(slog.String("requestID", requestID), slog.String("url", url))
	log.Debug("sending chat request", slog.String("model", req.Model))

	res, err := jsonapi.Raw(httpReq, opts...)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if isHTML(res.Header.Get("Content-Type")) {
		log.Warn("received HTML instead of chat text", slog.Int("status", res.StatusCode))
		return "", ErrUnexpectedResponse
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(res.Body)
		if startsWithDoctype(body) {
			log.Warn("received HTML error page", slog.Int("status", res.StatusCode))
			return "", ErrUnexpectedResponse
		}
		log.Warn("chat request failed", slog.Int("status", res.StatusCode))
		return "", jsonapi.InvalidStatusError{
			Status: res.StatusCode,
			Body:   string(body),
		}
	}

	g := &htmlGuard{f: f}
	if c.buffered || res.Body == nil || res.Body == http.NoBody {
		text, err = stream.ConsumeAll(ctx, res.Body, g.sink)
	} else {
		text, err = stream.Consume(ctx, res.Body, g.sink)
	}
	if err == nil {
		err = g.flush(ctx)
	}
	if errors.Is(err, ErrUnexpectedResponse) {
		log.Warn("received HTML document", slog.Int("status", res.StatusCode))
		return "", ErrUnexpectedResponse
	}
	if err != nil {
		return text, err
	}
	log.Debug("chat response complete", slog.Int("length", len(text)))
	return text, nil
}

// htmlGuard holds back snapshots that could be the start of an HTML document,
// so that a page is never shown as response text.
type htmlGuard struct {
	f       stream.Sink
	decided bool
	held    string
	pending bool
}

func (g *htmlGuard) sink(ctx context.Context, text string) error {
	if g.decided {
		return g.f(ctx, text)
	}
	trimmed := bytes.TrimLeft([]byte(text), whitespace)
	switch {
	case startsWithDoctype(trimmed):
		return ErrUnexpectedResponse
	case len(trimmed) > 0 && len(trimmed) < len(doctype) && bytes.EqualFold(trimmed, doctype[:len(trimmed)]):
		g.held, g.pending = text, true
		return nil
	case len(trimmed) > 0:
		g.decided = true
	}
	g.pending = false
	return g.f(ctx, text)
}

// flush publishes a held back snapshot when the stream ended before it could
// be told apart from a doctype.
func (g *htmlGuard) flush(ctx context.Context) error {
	if !g.pending {
		return nil
	}
	g.pending = false
	return g.f(ctx, g.held)
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

var doctype = []byte("<!doctype html")

const whitespace = " \t\r\n\ufeff"

func startsWithDoctype(body []byte) bool {
	body = bytes.TrimLeft(body, whitespace)
	if len(body) < len(doctype) {
		return false
	}
	return bytes.EqualFold(body[:len(doctype)], doctype)
}

// ResolveBaseURL returns baseURL with its port replaced by portOverride, if
// one is set.
func ResolveBaseURL(baseURL, portOverride string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("failed to parse base URL: %q is not absolute", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	portOverride = strings.TrimSpace(portOverride)
	if portOverride == "" {
		return u.String(), nil
	}
	port, err := strconv.Atoi(portOverride)
	if err != nil || port < 1 || port > 65535 {
		return "", fmt.Errorf("invalid port override %q", portOverride)
	}
	u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(port))
	return u.String(), nil
}
