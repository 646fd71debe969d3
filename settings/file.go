package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/a-h/revchat/models"
	"gopkg.in/yaml.v3"
)

// FileStore keeps settings in a file. The format is chosen by extension:
// .json, .toml, otherwise YAML.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

type format int

const (
	formatYAML format = iota
	formatJSON
	formatTOML
)

func (f *FileStore) format() format {
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".json":
		return formatJSON
	case ".toml":
		return formatTOML
	}
	return formatYAML
}

func (f *FileStore) Load(ctx context.Context) (s models.Settings, err error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("failed to read settings file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}
	switch f.format() {
	case formatJSON:
		err = json.Unmarshal(data, &s)
	case formatTOML:
		err = toml.Unmarshal(data, &s)
	default:
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to decode settings file %s: %w", f.Path, err)
	}
	return s, nil
}

func (f *FileStore) Save(ctx context.Context, s models.Settings) (err error) {
	var buf bytes.Buffer
	switch f.format() {
	case formatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		err = enc.Encode(s)
	case formatTOML:
		err = toml.NewEncoder(&buf).Encode(s)
	default:
		err = yaml.NewEncoder(&buf).Encode(s)
	}
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	// Readers, including the watcher, must never see a partial file.
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), "."+filepath.Base(f.Path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary settings file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err = tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set settings file permissions: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close settings file: %w", err)
	}
	if err = os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}

func (f *FileStore) Close() error {
	return nil
}
