package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/a-h/revchat/models"
)

type AskCommand struct {
	ClientFlags      `embed:""`
	SettingsFlags    `embed:""`
	Message          string `arg:"" help:"The message to send."`
	Model            string `help:"The model to use instead of the saved model." default:""`
	DeveloperMessage string `help:"The developer message to use instead of the saved message." default:""`
	Port             string `help:"The port to use instead of the saved port override." default:""`
	LogLevel         string `help:"The log level to use." env:"LOG_LEVEL" default:"warn"`
}

func (c AskCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)

	store, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	s, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	s = withDefaults(s, c.ClientFlags)
	if c.Model != "" {
		s.Model = c.Model
	}
	if c.DeveloperMessage != "" {
		s.DeveloperMessage = c.DeveloperMessage
	}
	if c.Port != "" {
		s.PortOverride = c.Port
	}

	req := models.ChatRequest{
		DeveloperMessage: s.DeveloperMessage,
		UserMessage:      c.Message,
		Model:            s.Model,
		APIKey:           s.APIKey,
	}
	log.Debug("sending message", slog.String("model", req.Model))

	p := &deltaPrinter{w: os.Stdout}
	if _, err = newBackend(log, c.ClientFlags, s.PortOverride).ChatPost(ctx, req, p.Write); err != nil {
		if p.printed != "" {
			fmt.Println()
		}
		return err
	}
	fmt.Println()
	return nil
}

// deltaPrinter writes the part of each snapshot that hasn't been written yet.
type deltaPrinter struct {
	w       io.Writer
	printed string
}

func (p *deltaPrinter) Write(ctx context.Context, text string) (err error) {
	delta := text
	if strings.HasPrefix(text, p.printed) {
		delta = text[len(p.printed):]
	} else if p.printed != "" {
		// The snapshot doesn't extend what was printed, so start again.
		delta = "\n" + text
	}
	if delta == "" {
		return nil
	}
	if _, err = io.WriteString(p.w, delta); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	p.printed = text
	return nil
}
