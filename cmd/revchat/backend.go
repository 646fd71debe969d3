package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/a-h/revchat/client"
	"github.com/a-h/revchat/models"
	"github.com/a-h/revchat/settings"
	"github.com/a-h/revchat/stream"
)

const (
	TransportHTTP   = "http"
	TransportOpenAI = "openai"
)

type ClientFlags struct {
	BaseURL       string `help:"The base URL of the chat backend." env:"REVCHAT_BASE_URL" default:"http://localhost:8000"`
	Transport     string `help:"Send requests to the chat backend (http) or directly to OpenAI (openai)." env:"REVCHAT_TRANSPORT" enum:"http,openai" default:"http"`
	BearerAuth    bool   `help:"Also send the API key in an Authorization header." env:"REVCHAT_BEARER_AUTH"`
	Buffered      bool   `help:"Read the whole response before showing it."`
	OpenAIBaseURL string `help:"The base URL of the OpenAI compatible API, for the openai transport." env:"OPENAI_BASE_URL" default:""`
	OpenAIAPIKey  string `help:"The API key to use if none has been saved." env:"OPENAI_API_KEY" default:""`
}

type SettingsFlags struct {
	SettingsBackend  string `help:"Where settings are saved." env:"REVCHAT_SETTINGS_BACKEND" enum:"file,sqlite,rqlite,redis" default:"file"`
	SettingsLocation string `help:"The settings file, database file or server URL. Defaults depend on the backend." env:"REVCHAT_SETTINGS_LOCATION" default:""`
}

func (f SettingsFlags) open(ctx context.Context) (settings.StoreCloser, error) {
	store, err := settings.Open(ctx, f.SettingsBackend, f.SettingsLocation)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}
	return store, nil
}

// backend sends requests with the configured transport. The port override can
// change between requests.
type backend struct {
	log   *slog.Logger
	flags ClientFlags

	m            sync.Mutex
	portOverride string
}

func newBackend(log *slog.Logger, flags ClientFlags, portOverride string) *backend {
	return &backend{
		log:          log,
		flags:        flags,
		portOverride: portOverride,
	}
}

func (b *backend) SetPortOverride(port string) {
	b.m.Lock()
	defer b.m.Unlock()
	b.portOverride = port
}

func (b *backend) ChatPost(ctx context.Context, req models.ChatRequest, f stream.Sink) (text string, err error) {
	if b.flags.Transport == TransportOpenAI {
		return client.NewOpenAI(b.log, b.flags.OpenAIBaseURL).ChatPost(ctx, req, f)
	}

	b.m.Lock()
	port := b.portOverride
	b.m.Unlock()

	baseURL, err := client.ResolveBaseURL(b.flags.BaseURL, port)
	if err != nil {
		return "", err
	}
	opts := []client.Option{client.WithLogger(b.log)}
	if b.flags.BearerAuth {
		opts = append(opts, client.WithBearerAuth())
	}
	if b.flags.Buffered {
		opts = append(opts, client.WithBufferedResponse())
	}
	return client.New(baseURL, opts...).ChatPost(ctx, req, f)
}

// withDefaults fills in settings that have not been saved.
func withDefaults(s models.Settings, flags ClientFlags) models.Settings {
	if s.APIKey == "" {
		s.APIKey = flags.OpenAIAPIKey
	}
	if s.DeveloperMessage == "" {
		s.DeveloperMessage = models.DefaultDeveloperMessage
	}
	return s
}
