// Package sqlite opens a field set cache in a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/neoscript99/go-gql-domain/pkg/fieldcache"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// Open opens (creating if needed) the cache database at path.
func Open(ctx context.Context, path, endpoint string, maxAge time.Duration) (*fieldcache.SQL, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_pragma=busy_timeout(5000)"
	} else {
		dsn += "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := fieldcache.NewSQL(ctx, db, fieldcache.PlaceholderQuestion, endpoint, maxAge)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}
