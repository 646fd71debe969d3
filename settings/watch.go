package settings

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/a-h/revchat/models"
	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange with the new settings each time the settings file is
// written. It blocks until the context is cancelled.
//
// The directory is watched rather than the file, because editors and Save
// replace the file with a rename.
func Watch(ctx context.Context, log *slog.Logger, store *FileStore, onChange func(models.Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(store.Path)
	if err = watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}
	name := filepath.Clean(store.Path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s, err := store.Load(ctx)
			if err != nil {
				log.Warn("failed to reload settings", slog.String("path", store.Path), slog.Any("error", err))
				continue
			}
			log.Debug("settings changed", slog.String("path", store.Path))
			onChange(s)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("settings watcher error", slog.Any("error", err))
		}
	}
}
