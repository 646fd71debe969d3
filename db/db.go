package db

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rqlite/gorqlite"
)

func New(conn *gorqlite.Connection) *Queries {
	return &Queries{
		conn: conn,
	}
}

type Queries struct {
	conn *gorqlite.Connection
}

type SettingsPutArgs struct {
	Profile       string
	Values        map[string]string
	LastUpdatedAt time.Time
}

// SettingsPut replaces all of the profile's settings in a single request.
func (q *Queries) SettingsPut(ctx context.Context, args SettingsPutArgs) (err error) {
	keys := make([]string, 0, len(args.Values))
	for k := range args.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	statements := make([]gorqlite.ParameterizedStatement, 0, len(keys)+1)
	statements = append(statements, gorqlite.ParameterizedStatement{
		Query:     `delete from setting where profile = ?`,
		Arguments: []any{args.Profile},
	})
	for _, k := range keys {
		statements = append(statements, gorqlite.ParameterizedStatement{
			Query:     `insert into setting (profile, key, value, last_updated_at) values (?, ?, ?, ?)`,
			Arguments: []any{args.Profile, k, args.Values[k], args.LastUpdatedAt},
		})
	}
	if _, err = q.conn.WriteParameterizedContext(ctx, statements); err != nil {
		return fmt.Errorf("db: settings put failed: %w", err)
	}
	return nil
}

// SettingsGet returns the profile's settings. A profile that has never been
// saved has no settings.
func (q *Queries) SettingsGet(ctx context.Context, profile string) (values map[string]string, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query:     `select key, value from setting where profile = ?`,
		Arguments: []any{profile},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("db: settings get failed: %w", err)
	}
	values = make(map[string]string)
	for result.Next() {
		var k, v string
		if err = result.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("db: settings scan failed: %w", err)
		}
		values[k] = v
	}
	return values, nil
}
