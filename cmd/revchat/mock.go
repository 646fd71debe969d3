package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/revchat/auth"
	chatpost "github.com/a-h/revchat/handlers/chat/post"
	"github.com/rs/cors"
)

type MockCommand struct {
	ListenAddr  string        `help:"The address to listen on." env:"LISTEN_ADDR" default:"localhost:8000"`
	APIKeysFile string        `help:"The file containing a JSON map of API keys to usernames. Any key is accepted if not set." env:"API_KEYS_FILE" default:""`
	Reply       string        `help:"The text to stream back. Defaults to a test message." default:""`
	Interval    time.Duration `help:"The time between streamed chunks." default:"50ms"`
	LogLevel    string        `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c MockCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)

	var keys auth.Keys
	if c.APIKeysFile != "" {
		keys, err = auth.LoadFromFile(c.APIKeysFile)
		if err != nil {
			return fmt.Errorf("failed to load API keys: %w", err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/chat", chatpost.New(log, keys, c.Reply, c.Interval))

	log.Info("Listening", slog.String("addr", c.ListenAddr))
	s := &http.Server{
		Addr:    c.ListenAddr,
		Handler: cors.AllowAll().Handler(mux),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down", slog.Any("error", err))
		}
	}()
	if err = s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
