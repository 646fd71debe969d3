package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/a-h/revchat/db"
	"github.com/a-h/revchat/models"
	"github.com/rqlite/gorqlite"
)

// DefaultProfile is the row set used by shared database backends.
const DefaultProfile = "default"

// RqliteStore keeps settings in rqlite, so that they can be shared between
// machines.
type RqliteStore struct {
	conn    *gorqlite.Connection
	queries *db.Queries
	profile string
	now     func() time.Time
}

// NewRqliteStore connects to rqlite and migrates the schema.
func NewRqliteStore(rqliteURL, profile string) (*RqliteStore, error) {
	databaseURL, err := db.ParseRqliteURL(rqliteURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rqlite URL: %w", err)
	}
	conn, err := gorqlite.Open(databaseURL.DataSourceName())
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	if err = db.Migrate(databaseURL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &RqliteStore{
		conn:    conn,
		queries: db.New(conn),
		profile: profile,
		now:     time.Now,
	}, nil
}

func (s *RqliteStore) Load(ctx context.Context) (models.Settings, error) {
	values, err := s.queries.SettingsGet(ctx, s.profile)
	if err != nil {
		return models.Settings{}, err
	}
	return models.SettingsFromMap(values), nil
}

func (s *RqliteStore) Save(ctx context.Context, settings models.Settings) error {
	return s.queries.SettingsPut(ctx, db.SettingsPutArgs{
		Profile:       s.profile,
		Values:        settings.Map(),
		LastUpdatedAt: s.now().UTC(),
	})
}

func (s *RqliteStore) Close() error {
	s.conn.Close()
	return nil
}
