package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/a-h/revchat/models"
	"github.com/a-h/revchat/stream"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIClient talks to an OpenAI compatible API directly, for when no
// /api/chat endpoint is running.
type OpenAIClient struct {
	baseURL string
	log     *slog.Logger
}

// NewOpenAI creates a client. An empty baseURL uses the library default.
func NewOpenAI(log *slog.Logger, baseURL string) OpenAIClient {
	return OpenAIClient{
		baseURL: baseURL,
		log:     log,
	}
}

func (c OpenAIClient) ChatPost(ctx context.Context, req models.ChatRequest, f stream.Sink) (text string, err error) {
	if err = req.Validate(); err != nil {
		return "", err
	}
	model := req.Model
	if model == "" {
		model = models.DefaultModel
	}
	opts := []openai.Option{
		openai.WithToken(req.APIKey),
		openai.WithModel(model),
	}
	if c.baseURL != "" {
		opts = append(opts, openai.WithBaseURL(c.baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.DeveloperMessage),
		llms.TextParts(llms.ChatMessageTypeHuman, req.UserMessage),
	}
	c.log.Debug("generating content", slog.String("model", model))

	// Streamed deltas are written to the pipe and read back by the consumer,
	// so each delta is one chunk.
	pr, pw := io.Pipe()
	go func() {
		_, err := llm.GenerateContent(ctx, msgs, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			_, err := pw.Write(chunk)
			return err
		}))
		if err != nil {
			err = fmt.Errorf("failed to generate content: %w", err)
		}
		pw.CloseWithError(err)
	}()

	text, err = stream.Consume(ctx, pr, f)
	pr.CloseWithError(err)
	return text, err
}
