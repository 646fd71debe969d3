package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/a-h/revchat/models"
	"gopkg.in/yaml.v3"
)

type SettingsCommand struct {
	Show SettingsShowCommand `cmd:"show" default:"1" help:"Print the saved settings."`
	Set  SettingsSetCommand  `cmd:"set" help:"Change a saved setting."`
}

type SettingsShowCommand struct {
	SettingsFlags `embed:""`
	ShowKey       bool `help:"Print the API key instead of masking it."`
}

func (c SettingsShowCommand) Run(ctx context.Context) (err error) {
	return c.show(ctx, os.Stdout)
}

func (c SettingsShowCommand) show(ctx context.Context, w io.Writer) (err error) {
	store, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	s, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if !c.ShowKey {
		s.APIKey = maskKey(s.APIKey)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(s)
}

type SettingsSetCommand struct {
	SettingsFlags `embed:""`
	Key           string `arg:"" enum:"model,apiKey,developerMessage,portOverride" help:"The setting to change: model, apiKey, developerMessage or portOverride."`
	Value         string `arg:"" optional:"" help:"The new value. Leave out to clear the setting."`
}

func (c SettingsSetCommand) Run(ctx context.Context) (err error) {
	store, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	s, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	values := s.Map()
	values[c.Key] = c.Value
	if err = store.Save(ctx, models.SettingsFromMap(values)); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
